package gvcp

// Well-known GVCP register offsets (spec.md §6). Names follow the
// ARV_GVBS_* convention the spec quotes from.
const (
	RegVersion              uint32 = 0x00000
	RegDeviceMode            uint32 = 0x00004
	RegDeviceMACHigh         uint32 = 0x00008
	RegDeviceMACLow          uint32 = 0x0000c
	RegSupportedIPConfig     uint32 = 0x00010
	RegCurrentIPConfig       uint32 = 0x00014
	RegCurrentIPAddress      uint32 = 0x00024
	RegCurrentIPMask         uint32 = 0x00034
	RegCurrentIPGateway      uint32 = 0x00044
	RegFirstURL              uint32 = 0x00200 // XML URL slot 0
	RegSecondURL             uint32 = 0x00400 // XML URL slot 1
	RegNumberOfNetworkIf     uint32 = 0x00600
	RegPersistentIPAddress   uint32 = 0x0064c
	RegPersistentIPMask      uint32 = 0x00650
	RegPersistentIPGateway   uint32 = 0x00654
	RegCapability            uint32 = 0x00934
	RegHeartbeatTimeout      uint32 = 0x00938
	RegTimestampTickHigh     uint32 = 0x0093c
	RegTimestampTickLow      uint32 = 0x00940
	RegTimestampControl      uint32 = 0x00944
	RegTimestampValueHigh    uint32 = 0x00948
	RegTimestampValueLow     uint32 = 0x0094c
	RegControlChannelPriv    uint32 = 0x00a00
	RegNumStreamChannels     uint32 = 0x00904

	// streamChannelBase + 0x40*N is the base of stream channel N's
	// register block (spec.md §6); per-channel offsets within it.
	streamChannelBase   uint32 = 0x00d00
	streamChannelStride uint32 = 0x00040
	scDestAddressOffset uint32 = 0x00018
	scHostPortOffset    uint32 = 0x00014
)

// StreamChannelRegister returns the absolute address of a per-channel
// register for stream channel n (spec.md §6: "0xd00 + 0x40*N").
func StreamChannelRegister(n int, fieldOffset uint32) uint32 {
	return streamChannelBase + streamChannelStride*uint32(n) + fieldOffset
}

func streamDestAddrRegister(n int) uint32 { return StreamChannelRegister(n, scDestAddressOffset) }
func streamHostPortRegister(n int) uint32 { return StreamChannelRegister(n, scHostPortOffset) }

// Control-channel privilege register bit.
const controlPrivilegeBit uint32 = 0x00000002

// Capability register bits (spec.md §6), exported so the facade's
// capability probe doesn't repeat these as magic numbers.
const (
	CapabilityPacketResend uint32 = 0x00000001
	CapabilityWriteMemory  uint32 = 0x00080000
)

// DeviceModeBigEndian is the device-mode register's endianness bit.
const DeviceModeBigEndian uint32 = 0x80000000

// IPConfigPersistent is the current-IP-configuration register's
// persistent-IP bit (spec.md §6).
const IPConfigPersistent uint32 = 0x01000000
