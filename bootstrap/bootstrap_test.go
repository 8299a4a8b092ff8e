package bootstrap

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/OverviewCorporation/aravis/genicam"
)

type fakeMemoryReader struct {
	data map[uint32][]byte
}

func (f *fakeMemoryReader) ReadMemory(ctx context.Context, address uint32, size int) ([]byte, error) {
	d, ok := f.data[address]
	if !ok || len(d) < size {
		return nil, fmt.Errorf("fakeMemoryReader: no data at 0x%x", address)
	}
	return d[:size], nil
}

type fakeHTTPFetcher struct {
	responses map[string][]byte
}

func (f *fakeHTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	d, ok := f.responses[url]
	if !ok {
		return nil, fmt.Errorf("fakeHTTPFetcher: no response for %q", url)
	}
	return d, nil
}

func stubFactory(xml []byte, defaults []genicam.NodeDefault) (genicam.Evaluator, error) {
	return nil, fmt.Errorf("stub evaluator: not implemented")
}

func collectingFactory(gotXML *[]byte, gotDefaults *[]genicam.NodeDefault) EvaluatorFactory {
	return func(xml []byte, defaults []genicam.NodeDefault) (genicam.Evaluator, error) {
		*gotXML = xml
		*gotDefaults = defaults
		return stubEvaluator{}, nil
	}
}

type stubEvaluator struct{}

func (stubEvaluator) Integer(name string) (genicam.IntegerFeature, error) { return nil, nil }
func (stubEvaluator) Boolean(name string) (genicam.BooleanFeature, error) { return nil, nil }
func (stubEvaluator) Command(name string) (genicam.CommandFeature, error) { return nil, nil }
func (stubEvaluator) String(name string) (genicam.StringFeature, error)   { return nil, nil }

func TestLoadFileScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.xml")
	content := []byte("<RegisterDescription/>")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	b := New(&fakeMemoryReader{}, nil)

	var gotXML []byte
	var gotDefaults []genicam.NodeDefault
	slot0 := "file:" + path

	schema, err := b.Load(context.Background(), func(ctx context.Context, slot int) (string, error) {
		if slot == 0 {
			return slot0, nil
		}
		return "", fmt.Errorf("no slot 1")
	}, collectingFactory(&gotXML, &gotDefaults))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(schema.XML, content) {
		t.Errorf("schema.XML = %q, want %q", schema.XML, content)
	}
	if len(gotDefaults) == 0 {
		t.Error("factory was not given the default node catalog")
	}
	if schema.Digest == "" {
		t.Error("schema.Digest is empty")
	}
}

func TestLoadLocalScheme(t *testing.T) {
	content := []byte("<RegisterDescription/>")
	session := &fakeMemoryReader{data: map[uint32][]byte{0x1000: content}}
	b := New(session, nil)

	schema, err := b.Load(context.Background(), func(ctx context.Context, slot int) (string, error) {
		if slot == 0 {
			return fmt.Sprintf("local:Schema.xml;%x;%x", 0x1000, len(content)), nil
		}
		return "", fmt.Errorf("no slot 1")
	}, stubFactory)
	// stubFactory always errors, so Load must surface that as a hard
	// failure rather than falling through to slot 1.
	if err == nil {
		t.Fatal("Load: want error from evaluator construction, got nil")
	}
	if schema != nil {
		t.Errorf("schema = %+v, want nil", schema)
	}
}

func TestLoadHTTPScheme(t *testing.T) {
	content := []byte("<RegisterDescription/>")
	fetcher := &fakeHTTPFetcher{responses: map[string][]byte{"http://device.local/schema.xml": content}}
	b := New(&fakeMemoryReader{}, nil)
	b.HTTPFetcher = fetcher

	var gotXML []byte
	var gotDefaults []genicam.NodeDefault
	schema, err := b.Load(context.Background(), func(ctx context.Context, slot int) (string, error) {
		if slot == 0 {
			return "http://device.local/schema.xml", nil
		}
		return "", fmt.Errorf("no slot 1")
	}, collectingFactory(&gotXML, &gotDefaults))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(schema.XML, content) {
		t.Errorf("schema.XML = %q, want %q", schema.XML, content)
	}
}

func TestLoadFallsBackToSecondSlot(t *testing.T) {
	content := []byte("<RegisterDescription/>")
	session := &fakeMemoryReader{data: map[uint32][]byte{0x2000: content}}
	b := New(session, nil)

	var gotXML []byte
	var gotDefaults []genicam.NodeDefault
	schema, err := b.Load(context.Background(), func(ctx context.Context, slot int) (string, error) {
		if slot == 0 {
			return "", fmt.Errorf("slot 0 register read failed")
		}
		return fmt.Sprintf("local:Schema.xml;%x;%x", 0x2000, len(content)), nil
	}, collectingFactory(&gotXML, &gotDefaults))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(schema.XML, content) {
		t.Errorf("schema.XML = %q, want %q", schema.XML, content)
	}
}

func TestLoadBothSlotsFail(t *testing.T) {
	b := New(&fakeMemoryReader{}, nil)
	_, err := b.Load(context.Background(), func(ctx context.Context, slot int) (string, error) {
		return "", fmt.Errorf("register read failed")
	}, stubFactory)
	if err == nil {
		t.Fatal("Load: want error, got nil")
	}
}

func TestLoadUnsupportedSchemeYieldsNoData(t *testing.T) {
	b := New(&fakeMemoryReader{}, nil)
	_, err := b.Load(context.Background(), func(ctx context.Context, slot int) (string, error) {
		return "ftp://device.local/schema.xml", nil
	}, stubFactory)
	if err == nil {
		t.Fatal("Load: want error for unsupported scheme, got nil")
	}
}

func TestFetchUnzipsZipSchemes(t *testing.T) {
	inner := []byte("<RegisterDescription/>")
	var zbuf bytes.Buffer
	zw := zip.NewWriter(&zbuf)
	w, err := zw.Create("Schema.xml")
	if err != nil {
		t.Fatalf("zip.Create: %v", err)
	}
	if _, err := w.Write(inner); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	session := &fakeMemoryReader{data: map[uint32][]byte{0x3000: zbuf.Bytes()}}
	b := New(session, nil)

	var gotXML []byte
	var gotDefaults []genicam.NodeDefault
	schema, err := b.Load(context.Background(), func(ctx context.Context, slot int) (string, error) {
		if slot == 0 {
			return fmt.Sprintf("local:Schema.zip;%x;%x", 0x3000, zbuf.Len()), nil
		}
		return "", fmt.Errorf("no slot 1")
	}, collectingFactory(&gotXML, &gotDefaults))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(schema.XML, inner) {
		t.Errorf("schema.XML = %q, want unzipped %q", schema.XML, inner)
	}
}
