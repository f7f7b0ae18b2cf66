package cpu

/**
Machine status word package. Only the bits the memory system cares about
are modeled: privilege and translation enable.
*/

// status word layout. Values here are bits, not the powers of 2.
const supervisorFlag = 8
const vmFlag = 17

// Status keeps the machine status word
type Status uint64

// Get returns the current status word
func (s *Status) Get() uint64 {
	return uint64(*s)
}

// Set the status word value
func (s *Status) Set(v uint64) {
	*s = Status(v)
}

// Supervisor reports whether the processor runs in supervisor mode
func (s *Status) Supervisor() bool {
	return s.getFlag(supervisorFlag)
}

// SetSupervisor switches between supervisor and user mode
func (s *Status) SetSupervisor(sup bool) {
	s.setFlag(supervisorFlag, sup)
}

// VMEnabled reports whether address translation is on
func (s *Status) VMEnabled() bool {
	return s.getFlag(vmFlag)
}

// SetVMEnabled turns address translation on or off
func (s *Status) SetVMEnabled(en bool) {
	s.setFlag(vmFlag, en)
}

// generic get flag function
func (s *Status) getFlag(flag uint) bool {
	return (*s & (1 << flag)) > 0
}

// generic set flag function
func (s *Status) setFlag(flag uint, status bool) {
	if status {
		*s |= (1 << flag)
	} else {
		*s &^= (1 << flag)
	}
}

// Flags returns the set flags as a short string for the register view
func (s *Status) Flags() string {
	flags := ""
	if s.Supervisor() {
		flags += "S"
	} else {
		flags += "U"
	}
	if s.VMEnabled() {
		flags += "V"
	} else {
		flags += " "
	}
	return "[" + flags + "]"
}
