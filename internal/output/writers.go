package output

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/oceansim/internal/wave"
)

var ErrFormat = errors.New("unknown output format")

// Format is an on-disk field encoding.
type Format string

const (
	FormatPFM Format = "pfm"
	FormatCSV Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPFM, FormatCSV:
		return f, nil
	case "":
		return FormatPFM, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, s)
	}
}

func (f Format) Ext() string { return string(f) }

// NewWriter returns the field writer for a format.
func NewWriter(f Format) (wave.FieldWriter, error) {
	switch f {
	case FormatPFM:
		return PFMWriter{}, nil
	case FormatCSV:
		return CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, f)
	}
}

// PFMWriter stores a field as a color portable float map. Red holds the
// horizontal displacement along x, green the height and blue the
// displacement along the second plane axis. Rows run bottom to top so the
// image origin is the patch lower left corner.
type PFMWriter struct{}

func (PFMWriter) WriteField(path string, f *wave.Field) error {
	return writeFile(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if _, err := fmt.Fprintf(bw, "PF\n%d %d\n-1.0\n", f.NX, f.NY); err != nil {
			return err
		}
		var buf [12]byte
		for k := range f.Height {
			binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(f.DispX[k])))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(f.Height[k])))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(f.DispY[k])))
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
}

// Image is a decoded PFM.
type Image struct {
	Width, Height int
	Channels      int
	Pixels        []float32
}

// At returns channel c of pixel (i, j).
func (im *Image) At(i, j, c int) float32 {
	return im.Pixels[(j*im.Width+i)*im.Channels+c]
}

func ReadPFM(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic string
	var width, height int
	var scale float64
	if _, err := fmt.Fscan(r, &magic, &width, &height, &scale); err != nil {
		return nil, fmt.Errorf("pfm header: %w", err)
	}
	if _, err := r.ReadByte(); err != nil {
		return nil, fmt.Errorf("pfm header: %w", err)
	}

	channels := 0
	switch magic {
	case "PF":
		channels = 3
	case "Pf":
		channels = 1
	default:
		return nil, fmt.Errorf("pfm: bad magic %q", magic)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if scale > 0 {
		order = binary.BigEndian
	}

	im := &Image{Width: width, Height: height, Channels: channels, Pixels: make([]float32, width*height*channels)}
	var buf [4]byte
	for k := range im.Pixels {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("pfm data: %w", err)
		}
		im.Pixels[k] = math.Float32frombits(order.Uint32(buf[:]))
	}
	return im, nil
}

// CSVWriter stores one row per grid node with world position and every
// channel. Useful for inspection and plotting.
type CSVWriter struct{}

var csvHeader = []string{"i", "j", "x", "y", "height", "slope_x", "slope_y", "disp_x", "disp_y"}

func (CSVWriter) WriteField(path string, f *wave.Field) error {
	return writeFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
		for j := 0; j < f.NY; j++ {
			for i := 0; i < f.NX; i++ {
				x, y := f.Position(i, j)
				s := f.At(i, j)
				row := []string{
					strconv.Itoa(i), strconv.Itoa(j), format(x), format(y),
					format(s.Height), format(s.SlopeX), format(s.SlopeY), format(s.DispX), format(s.DispY),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
