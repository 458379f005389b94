package ops

// Status is the consolidation state of a room.
type Status struct {
	Consolidating bool   `json:"consolidating"`
	LastError     string `json:"last_error,omitempty"`
}

// Status reports whether room is consolidating and the last failure message.
func (s *Service) Status(room string) Status {
	room, err := roomName(room)
	if err != nil {
		return Status{}
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st, ok := s.status[room]; ok {
		return *st
	}
	return Status{}
}

// claim moves room from idle to consolidating. It returns false if a
// consolidation is already running there.
func (s *Service) claim(room string) bool {
	s.statusMu.Lock()
	st, ok := s.status[room]
	if !ok {
		st = &Status{}
		s.status[room] = st
	}
	if st.Consolidating {
		s.statusMu.Unlock()
		return false
	}
	st.Consolidating = true
	st.LastError = ""
	s.statusMu.Unlock()

	s.notifyStatus(room, Status{Consolidating: true})
	return true
}

// release returns room to idle, recording msg as the last error. Rooms that
// end idle without an error are dropped from the map.
func (s *Service) release(room, msg string) {
	s.statusMu.Lock()
	st, ok := s.status[room]
	if ok {
		st.Consolidating = false
		st.LastError = msg
		if msg == "" {
			delete(s.status, room)
		}
	}
	s.statusMu.Unlock()

	if ok {
		s.notifyStatus(room, Status{LastError: msg})
	}
}

func (s *Service) notifyStatus(room string, st Status) {
	if sn, ok := s.notifier.(StatusNotifier); ok {
		sn.NotifyStatus(room, st.Consolidating, st.LastError)
	}
}
