package rimage

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Minimal OpenEXR codec: single-part scanline files, 32-bit float samples,
// no compression. This is the subset the radiance pipeline needs; precision is
// preserved exactly because samples are stored verbatim.

const (
	exrMagic   = 20000630
	exrVersion = 2

	exrPixelTypeFloat = 2
	exrNoCompression  = 0
)

// channel names written per channel count. Entries are kept in alphabetical
// order as the chlist attribute requires; the index pairs map file channels to
// raster channels.
var exrChannelOrders = map[int][]struct {
	name  string
	plane int
}{
	1: {{"Y", 0}},
	3: {{"B", 2}, {"G", 1}, {"R", 0}},
	4: {{"A", 3}, {"B", 2}, {"G", 1}, {"R", 0}},
}

func writeAttr(w io.Writer, name, typ string, value []byte) error {
	if _, err := w.Write(append([]byte(name), 0)); err != nil {
		return err
	}
	if _, err := w.Write(append([]byte(typ), 0)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(value))); err != nil {
		return err
	}
	_, err := w.Write(value)
	return err
}

// EncodeEXR writes the raster to w as an uncompressed float scanline EXR.
func EncodeEXR(w io.Writer, img *Image) error {
	order, ok := exrChannelOrders[img.Channels()]
	if !ok {
		return errors.Errorf("cannot encode EXR with %d channels", img.Channels())
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(exrMagic)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(exrVersion)); err != nil {
		return err
	}

	var chlist []byte
	for _, ch := range order {
		chlist = append(chlist, []byte(ch.name)...)
		chlist = append(chlist, 0)
		var fixed [16]byte
		binary.LittleEndian.PutUint32(fixed[0:], exrPixelTypeFloat)
		binary.LittleEndian.PutUint32(fixed[8:], 1)  // xSampling
		binary.LittleEndian.PutUint32(fixed[12:], 1) // ySampling
		chlist = append(chlist, fixed[:]...)
	}
	chlist = append(chlist, 0)

	box := make([]byte, 16)
	binary.LittleEndian.PutUint32(box[8:], uint32(img.Width()-1))
	binary.LittleEndian.PutUint32(box[12:], uint32(img.Height()-1))

	f32 := func(v float32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		return b
	}

	headerAttrs := []struct {
		name, typ string
		value     []byte
	}{
		{"channels", "chlist", chlist},
		{"compression", "compression", []byte{exrNoCompression}},
		{"dataWindow", "box2i", box},
		{"displayWindow", "box2i", box},
		{"lineOrder", "lineOrder", []byte{0}},
		{"pixelAspectRatio", "float", f32(1)},
		{"screenWindowCenter", "v2f", append(f32(0), f32(0)...)},
		{"screenWindowWidth", "float", f32(1)},
	}
	headerSize := 0
	for _, a := range headerAttrs {
		if err := writeAttr(bw, a.name, a.typ, a.value); err != nil {
			return err
		}
		headerSize += len(a.name) + 1 + len(a.typ) + 1 + 4 + len(a.value)
	}
	if err := bw.WriteByte(0); err != nil {
		return err
	}
	headerSize++

	// offset table then one chunk per scanline
	lineSize := 8 + img.Width()*img.Channels()*4
	base := 8 + headerSize + img.Height()*8
	for y := 0; y < img.Height(); y++ {
		if err := binary.Write(bw, binary.LittleEndian, uint64(base+y*lineSize)); err != nil {
			return err
		}
	}
	row := make([]byte, img.Width()*img.Channels()*4)
	for y := 0; y < img.Height(); y++ {
		if err := binary.Write(bw, binary.LittleEndian, int32(y)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, int32(len(row))); err != nil {
			return err
		}
		off := 0
		for _, ch := range order {
			for x := 0; x < img.Width(); x++ {
				binary.LittleEndian.PutUint32(row[off:], math.Float32bits(img.Get(x, y, ch.plane)))
				off += 4
			}
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readCString(r *bufio.Reader) (string, error) {
	s, err := r.ReadString(0)
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}

type exrChannel struct {
	name      string
	pixelType int32
}

func parseChlist(value []byte) ([]exrChannel, error) {
	var out []exrChannel
	for len(value) > 0 && value[0] != 0 {
		i := 0
		for i < len(value) && value[i] != 0 {
			i++
		}
		name := string(value[:i])
		rest := value[i+1:]
		if len(rest) < 16 {
			return nil, errors.New("truncated chlist entry")
		}
		out = append(out, exrChannel{
			name:      name,
			pixelType: int32(binary.LittleEndian.Uint32(rest[0:4])),
		})
		value = rest[16:]
	}
	return out, nil
}

// DecodeEXR reads an uncompressed float scanline EXR from r.
func DecodeEXR(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	var magic, version int32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != exrMagic {
		return nil, errors.New("not an EXR file")
	}
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version&0x200 != 0 {
		return nil, errors.New("tiled EXR files are not supported")
	}

	var channels []exrChannel
	compression := int8(-1)
	var width, height int
	for {
		name, err := readCString(br)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		if _, err := readCString(br); err != nil { // attribute type
			return nil, err
		}
		var size int32
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		value := make([]byte, size)
		if _, err := io.ReadFull(br, value); err != nil {
			return nil, err
		}
		switch name {
		case "channels":
			if channels, err = parseChlist(value); err != nil {
				return nil, err
			}
		case "compression":
			compression = int8(value[0])
		case "dataWindow":
			xMin := int32(binary.LittleEndian.Uint32(value[0:4]))
			yMin := int32(binary.LittleEndian.Uint32(value[4:8]))
			xMax := int32(binary.LittleEndian.Uint32(value[8:12]))
			yMax := int32(binary.LittleEndian.Uint32(value[12:16]))
			width = int(xMax-xMin) + 1
			height = int(yMax-yMin) + 1
		}
	}
	if compression != exrNoCompression {
		return nil, errors.Errorf("unsupported EXR compression %d, only uncompressed files are readable", compression)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("EXR missing or invalid dataWindow")
	}
	if len(channels) == 0 {
		return nil, errors.New("EXR missing channel list")
	}
	for _, ch := range channels {
		if ch.pixelType != exrPixelTypeFloat {
			return nil, errors.Errorf("channel %q is not 32-bit float", ch.name)
		}
	}

	planes := make(map[string]int, len(channels))
	if order, ok := exrChannelOrders[len(channels)]; ok && chlistMatches(channels, order) {
		for _, ch := range order {
			planes[ch.name] = ch.plane
		}
	} else {
		names := make([]string, len(channels))
		for i, ch := range channels {
			names[i] = ch.name
		}
		sort.Strings(names)
		for i, n := range names {
			planes[n] = i
		}
	}

	// skip the offset table, chunks follow in line order
	if _, err := io.CopyN(io.Discard, br, int64(height)*8); err != nil {
		return nil, err
	}
	out := NewImage(width, height, len(channels))
	row := make([]byte, width*4)
	for i := 0; i < height; i++ {
		var y, size int32
		if err := binary.Read(br, binary.LittleEndian, &y); err != nil {
			return nil, err
		}
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if int(size) != width*len(channels)*4 {
			return nil, errors.Errorf("scanline %d has unexpected size %d", y, size)
		}
		if y < 0 || int(y) >= height {
			return nil, errors.Errorf("scanline coordinate %d out of range", y)
		}
		for _, ch := range channels {
			if _, err := io.ReadFull(br, row); err != nil {
				return nil, err
			}
			c := planes[ch.name]
			for x := 0; x < width; x++ {
				out.Set(x, int(y), c, math.Float32frombits(binary.LittleEndian.Uint32(row[x*4:])))
			}
		}
	}
	return out, nil
}

func chlistMatches(channels []exrChannel, order []struct {
	name  string
	plane int
},
) bool {
	if len(channels) != len(order) {
		return false
	}
	for i, ch := range channels {
		if ch.name != order[i].name {
			return false
		}
	}
	return true
}

// WriteEXRToFile writes the raster to an .exr file.
func WriteEXRToFile(path string, img *Image) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return EncodeEXR(f, img)
}

// ReadEXRFromFile reads a raster from an .exr file.
func ReadEXRFromFile(path string) (*Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return DecodeEXR(f)
}
