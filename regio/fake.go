package regio

// A Fake is an in-process backend that remembers the last word written to
// each address. Addresses that were never written read as 0. It lets the
// register protocols run without hardware.
//
// Reads outside the device pages panic, the same way a peek on real hardware
// would be refused.
type Fake struct {
	storage *wordStorage
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{storage: newWordStorage()}
}

// Read32 returns the last word written at addr.
func (f *Fake) Read32(addr uint32) (uint32, error) {
	mustBeDeviceAddress(addr)

	return f.storage.read(addr), nil
}

// Write32 stores data at addr.
func (f *Fake) Write32(addr uint32, data uint32) error {
	f.storage.write(addr, data)

	return nil
}

// Close does nothing.
func (f *Fake) Close() error {
	return nil
}

// wordStorage keeps words in pages. A page is only allocated when one of its
// words is first written.
type wordStorage struct {
	wordsPerPage uint32
	pages        map[uint32][]uint32
}

func newWordStorage() *wordStorage {
	return &wordStorage{
		wordsPerPage: 1024,
		pages:        make(map[uint32][]uint32),
	}
}

func (s *wordStorage) parseAddress(addr uint32) (pageAddr, index uint32) {
	pageSize := s.wordsPerPage * 4
	index = (addr % pageSize) / 4
	pageAddr = addr - addr%pageSize

	return pageAddr, index
}

func (s *wordStorage) read(addr uint32) uint32 {
	pageAddr, index := s.parseAddress(addr)

	page, ok := s.pages[pageAddr]
	if !ok {
		return 0
	}

	return page[index]
}

func (s *wordStorage) write(addr uint32, data uint32) {
	pageAddr, index := s.parseAddress(addr)

	page, ok := s.pages[pageAddr]
	if !ok {
		page = make([]uint32, s.wordsPerPage)
		s.pages[pageAddr] = page
	}

	page[index] = data
}
