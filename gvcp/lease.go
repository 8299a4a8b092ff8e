package gvcp

import (
	"context"
	"time"
)

// TakeControl writes the control-privilege bit to the privilege
// register and, on success, marks this session as controller
// (spec.md §4.4).
func (s *Session) TakeControl(ctx context.Context) error {
	if err := s.WriteRegister(ctx, RegControlChannelPriv, controlPrivilegeBit); err != nil {
		return err
	}
	s.isController.Store(true)
	return nil
}

// LeaveControl clears the privilege register and this session's
// controller flag.
func (s *Session) LeaveControl(ctx context.Context) error {
	err := s.WriteRegister(ctx, RegControlChannelPriv, 0)
	s.isController.Store(false)
	return err
}

// SetControlLostListener registers the single-consumer callback
// invoked synchronously from the heartbeat goroutine when control is
// observed lost (spec.md §4.4, §9 "Callback-emitting signal").
func (s *Session) SetControlLostListener(l ControlLostListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// StartHeartbeat spawns the background task that keeps the control
// lease alive, per spec.md §4.4. It must be called at most once per
// Session; StopHeartbeat joins it.
func (s *Session) StartHeartbeat() {
	ctx, cancel := context.WithCancel(context.Background())
	s.leaseCancel = cancel
	s.leaseDone = make(chan struct{})
	go s.heartbeatLoop(ctx)
}

// StopHeartbeat cancels the heartbeat and waits for it to exit. Safe
// to call even if StartHeartbeat was never called. Idempotent.
func (s *Session) StopHeartbeat() {
	if s.leaseCancel == nil {
		return
	}
	s.leaseCancel()
	<-s.leaseDone
	s.leaseCancel = nil
}

// heartbeatLoop is the background task of spec.md §4.4: sleep H
// microseconds (cancel-aware), then, if controlling, issue a
// heartbeat read of the privilege register. On the control bits going
// to zero, notify the listener once and clear the controller flag;
// subsequent iterations do nothing until the application retakes
// control. Transient read failures are retried with a fixed delay for
// a bounded budget before being swallowed (spec.md §7: "heartbeat
// failures are swallowed except for the terminal transition").
func (s *Session) heartbeatLoop(ctx context.Context) {
	defer close(s.leaseDone)

	timer := time.NewTimer(s.cfg.heartbeatPeriod())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		timer.Reset(s.cfg.heartbeatPeriod())

		if !s.isController.Load() {
			continue
		}
		s.heartbeatOnce(ctx)
	}
}

func (s *Session) heartbeatOnce(ctx context.Context) {
	deadline := time.Now().Add(s.cfg.heartbeatRetryBudget())
	var value uint32
	var err error
	for {
		value, err = s.ReadRegister(ctx, RegControlChannelPriv)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			s.logger.Printf("gvcp: heartbeat: giving up after retry budget: %v", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.heartbeatRetryDelay()):
		}
	}

	if value&controlPrivilegeBit == 0 {
		s.isController.Store(false)
		s.metric.observeControlLost()
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener != nil {
			listener()
		}
	}
}
