//go:build unix

package regio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MappedMemory", func() {
	var (
		path string
		page uint32
	)

	fileBytes := func() []byte {
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		return data
	}

	BeforeEach(func() {
		page = uint32(os.Getpagesize())
		path = filepath.Join(GinkgoT().TempDir(), "xdma0_user")

		Expect(os.WriteFile(path, bytes.Repeat([]byte{0xFF}, int(2*page)), 0o600)).
			To(Succeed())
	})

	It("should store words little endian at their offset", func() {
		m, err := NewDevMem(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Map(page, page)).To(Succeed())

		Expect(m.Write32(page+8, 0x11223344)).To(Succeed())
		Expect(m.Read32(page + 8)).To(Equal(uint32(0x11223344)))
		Expect(m.Close()).To(Succeed())

		data := fileBytes()
		Expect(data[page+8 : page+12]).To(Equal([]byte{0x44, 0x33, 0x22, 0x11}))
		Expect(binary.LittleEndian.Uint32(data[page+8:])).To(Equal(uint32(0x11223344)))
	})

	It("should leave the window untouched on /dev/mem", func() {
		m, err := NewDevMem(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Map(page, page)).To(Succeed())

		Expect(m.Read32(page)).To(Equal(uint32(0xFFFFFFFF)))
		Expect(m.Close()).To(Succeed())

		Expect(fileBytes()[page : page+4]).To(Equal([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	})

	It("should zero the first word of every XDMA window", func() {
		m, err := NewXDMA(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Map(page, page)).To(Succeed())

		Expect(m.Write32(page+8, 0x11223344)).To(Succeed())
		Expect(m.Close()).To(Succeed())

		data := fileBytes()
		Expect(data[page : page+4]).To(Equal([]byte{0, 0, 0, 0}))
		Expect(data[page+4 : page+8]).To(Equal([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
		Expect(data[page+8 : page+12]).To(Equal([]byte{0x44, 0x33, 0x22, 0x11}))
		Expect(data[0:4]).To(Equal([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	})

	It("should panic on addresses outside the windows", func() {
		m, err := NewDevMem(path)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.Map(page, page)).To(Succeed())

		Expect(func() { _, _ = m.Read32(0) }).To(PanicWith(
			MatchError(ContainSubstring("is not mapped on " + path))))
		Expect(func() { _, _ = m.Read32(2 * page) }).To(Panic())
		Expect(func() { _, _ = m.Read32(2*page - 2) }).To(Panic())
		Expect(func() { _ = m.Write32(page-4, 1) }).To(Panic())
	})

	It("should unmap the windows and close the file", func() {
		m, err := NewDevMem(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Map(page, page)).To(Succeed())

		Expect(m.Close()).To(Succeed())

		Expect(m.windows).To(BeEmpty())
		Expect(m.file.Close()).To(MatchError(os.ErrClosed))
		Expect(func() { _, _ = m.Read32(page) }).To(Panic())
	})

	It("should reject an unaligned window", func() {
		m, err := NewDevMem(path)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.Map(page+1, page)).To(MatchError(ContainSubstring("mmap " + path)))
		Expect(m.windows).To(BeEmpty())
	})

	It("should open a bus on the XDMA windows", func() {
		bus, err := Open(Config{
			Kind:    KindXDMA,
			Device:  path,
			Windows: []Window{{Base: page, Length: page}},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(bus.Write32(page+4, 0xA5A5A5A5)).To(Succeed())
		Expect(bus.Read32(page + 4)).To(Equal(uint32(0xA5A5A5A5)))
		Expect(bus.Close()).To(Succeed())

		data := fileBytes()
		Expect(data[page : page+4]).To(Equal([]byte{0, 0, 0, 0}))
		Expect(binary.LittleEndian.Uint32(data[page+4:])).To(Equal(uint32(0xA5A5A5A5)))
	})

	It("should fail to open a missing device", func() {
		_, err := NewXDMA(filepath.Join(GinkgoT().TempDir(), "missing"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})
