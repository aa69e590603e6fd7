package tag

// Session hands out tags that are unique among everything it issued.
// A collision only costs a redraw.
type Session struct {
	gen    *Generator
	length int
	issued map[string]struct{}
	redraw int
}

// NewSession creates a session issuing tags of the given length.
// A non-positive length selects DefaultLength.
func NewSession(gen *Generator, length int) *Session {
	if gen == nil {
		gen = NewRandom()
	}
	if length <= 0 {
		length = DefaultLength
	}
	return &Session{
		gen:    gen,
		length: length,
		issued: make(map[string]struct{}),
	}
}

// Next returns a tag not issued before by this session.
func (s *Session) Next() string {
	for {
		t := s.gen.Make(s.length)
		if _, dup := s.issued[t]; !dup {
			s.issued[t] = struct{}{}
			return t
		}
		s.redraw++
	}
}

// Reserve marks externally produced tags as taken, e.g. ones restored from a cache.
func (s *Session) Reserve(tags ...string) {
	for _, t := range tags {
		s.issued[t] = struct{}{}
	}
}

// Issued returns how many distinct tags the session handed out or reserved.
func (s *Session) Issued() int {
	return len(s.issued)
}

// Redraws returns how many collisions were resolved.
func (s *Session) Redraws() int {
	return s.redraw
}
