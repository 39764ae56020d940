package sample

// MaxFrames bounds the size of a single chunked delivery.
const MaxFrames = 1 << 26

// Chunk is one piece of a chunked delivery.
type Chunk struct {
	PitchHz    float64
	SampleRate float64
	TotalSize  int
	Offset     int
	Data       []float32
	Last       bool

	LoopStart, LoopEnd int
}

// Store is owned by the render goroutine and is not synchronized.
type Store struct {
	entries map[Key]*Entry
}

func NewStore() *Store {
	return &Store{entries: map[Key]*Entry{}}
}

func (s *Store) Len() int { return len(s.entries) }

func (s *Store) Get(k Key) (*Entry, bool) {
	e, ok := s.entries[k]
	return e, ok
}

// Request marks k as Requested and reports whether this is the first time k
// has been seen.  Only the first call should lead to a request message.
func (s *Store) Request(k Key) bool {
	if _, ok := s.entries[k]; ok {
		return false
	}
	s.entries[k] = &Entry{State: Requested}
	return true
}

// Complete returns the sample for k if it is fully delivered.
func (s *Store) Complete(k Key) (*Sample, bool) {
	e, ok := s.entries[k]
	if !ok || e.State != Complete {
		return nil, false
	}
	return e.Sample, true
}

// AddChunk merges one chunk.  Chunks for Complete entries and chunks that do
// not fit the announced total size are dropped.
func (s *Store) AddChunk(k Key, c Chunk) {
	e := s.entry(k)
	if e.State == Complete {
		return
	}
	if c.TotalSize <= 0 || c.TotalSize > MaxFrames {
		return
	}
	if e.State != Partial || len(e.buf) != c.TotalSize {
		e.State = Partial
		e.buf = make([]float32, c.TotalSize)
		e.received = 0
	}
	if c.Offset < 0 || c.Offset > c.TotalSize || len(c.Data) > c.TotalSize-c.Offset {
		return
	}
	copy(e.buf[c.Offset:], c.Data)
	e.received += len(c.Data)
	e.meta = Sample{SampleRate: c.SampleRate, PitchHz: c.PitchHz, LoopStart: c.LoopStart, LoopEnd: c.LoopEnd}
	if c.Last {
		smp := e.meta
		smp.Data = e.buf
		e.complete(&smp)
	}
}

// AddSample stores a whole sample.  Existing Complete entries win.
func (s *Store) AddSample(k Key, smp *Sample) {
	e := s.entry(k)
	if e.State == Complete || smp == nil {
		return
	}
	e.complete(smp)
}

// NotFound records a failed lookup.  It never downgrades a Complete entry.
func (s *Store) NotFound(k Key) {
	e := s.entry(k)
	if e.State == Complete {
		return
	}
	e.State = NotFound
	e.buf = nil
	e.received = 0
}

func (s *Store) entry(k Key) *Entry {
	e, ok := s.entries[k]
	if !ok {
		e = &Entry{State: Requested}
		s.entries[k] = e
	}
	return e
}

func (e *Entry) complete(smp *Sample) {
	e.State = Complete
	e.Sample = smp
	e.buf = nil
}
