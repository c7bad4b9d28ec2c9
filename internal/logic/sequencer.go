package logic

const maxPressTicks = 0xFFFF

// Sequencer is the power-button state machine. It decides when the latch is
// held and which action a press asks for; it performs no I/O itself.
type Sequencer struct {
	cfg     PowerConfig
	state   PowerState
	pending PendingAction
	press   uint16
}

// NewSequencer creates a sequencer in StateIdle. Call Boot before Tick.
func NewSequencer(cfg PowerConfig) *Sequencer {
	return &Sequencer{
		cfg:     cfg,
		state:   StateIdle,
		pending: PendingNone,
	}
}

// Boot performs the one-time initial transition from the button level seen at
// power-on. Both outcomes latch the rail: a held button means the user is
// powering on from battery, a released one means an external supply booted us
// and the battery must be able to take over when it is removed.
func (s *Sequencer) Boot(pressed bool) PowerState {
	if s.state != StateIdle {
		return s.state
	}
	if pressed {
		s.state = StateKeyHeldAtBoot
	} else {
		s.state = StateRunning
	}
	s.press = 0
	s.pending = PendingNone
	return s.state
}

// Tick advances the machine by one polling period and returns the action the
// caller must carry out now. At most one non-None action is returned per
// press/release cycle.
func (s *Sequencer) Tick(pressed bool) Action {
	switch s.state {
	case StateIdle, StateOff:
		return ActionNone
	}

	if pressed {
		return s.held()
	}
	return s.released()
}

func (s *Sequencer) held() Action {
	if s.state == StateKeyHeldAtBoot && !s.cfg.CountBootHold {
		return ActionNone
	}

	if s.press < maxPressTicks {
		s.press++
	}

	if s.press >= s.cfg.ShutdownAt {
		s.state = StateOff
		s.pending = PendingNone
		return ActionShutdown
	}

	// The boot gesture may run on toward shutdown but never arms sleep/restart.
	if s.state != StateRunning {
		return ActionNone
	}

	switch {
	case s.press >= s.cfg.RestartAt:
		s.pending = PendingRestart
	case s.press >= s.cfg.SleepAt:
		s.pending = PendingSleep
	}
	return ActionNone
}

func (s *Sequencer) released() Action {
	if s.state == StateKeyHeldAtBoot {
		s.state = StateRunning
	}

	action := ActionNone
	switch s.pending {
	case PendingSleep:
		action = ActionSleep
	case PendingRestart:
		action = ActionRestart
	}

	s.pending = PendingNone
	s.press = 0
	return action
}

// State returns the current power state.
func (s *Sequencer) State() PowerState {
	return s.state
}

// Pending returns the action armed by the current hold.
func (s *Sequencer) Pending() PendingAction {
	return s.pending
}

// PressTicks returns how many ticks the button has been held in this press.
func (s *Sequencer) PressTicks() uint16 {
	return s.press
}

// Latched reports whether the power latch should be asserted. It depends on
// the state alone.
func (s *Sequencer) Latched() bool {
	return s.state == StateKeyHeldAtBoot || s.state == StateRunning
}
