// Package mnist reads the MNIST digit set in its gzip idx form and feeds it to the decoder.
package mnist

import "os"
import "fmt"
import "errors"
import "crypto/sha256"
import "io"
import "compress/gzip"
import "bytes"
import "encoding/binary"
import "math/rand"
import "path/filepath"

import "github.com/neurlang/abstain/decode"

const ImgSize = 28

const inferSetImg = "t10k-images-idx3-ubyte.gz"
const inferSetVal = "t10k-labels-idx1-ubyte.gz"
const trainSetImg = "train-images-idx3-ubyte.gz"
const trainSetVal = "train-labels-idx1-ubyte.gz"
const inferDigImg = "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6"
const inferDigVal = "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6"
const trainDigImg = "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609"
const trainDigVal = "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c"

const imageMagic = 2051
const labelMagic = 2049

var ErrFormat = errors.New("malformed idx file")
var ErrDigest = errors.New("file digest mismatch")

// SearchDirectories are tried in order by Load when no directory is given.
var SearchDirectories = []string{"/tmp/mnist/", userHomeDir() + "/.cache/mnist/"}

func userHomeDir() string {
	dirname, err := os.UserHomeDir()
	if err != nil {
		return "~"
	}
	return dirname
}

// Split names one half of the data set.
type Split int

const (
	Train Split = iota
	Infer
)

func (s Split) files() (img, val, digImg, digVal string) {
	if s == Train {
		return trainSetImg, trainSetVal, trainDigImg, trainDigVal
	}
	return inferSetImg, inferSetVal, inferDigImg, inferDigVal
}

// Set is a list of 28x28 images with their digit labels.
type Set struct {
	Images [][ImgSize * ImgSize]byte
	Labels []byte
}

// Len is the number of examples.
func (s *Set) Len() int {
	return len(s.Labels)
}

// Input converts image i to a float vector. Pixels map to [0, 1] and, with
// normalize, further to [-1, 1].
func (s *Set) Input(i int, normalize bool) []float64 {
	out := make([]float64, ImgSize*ImgSize)
	for j, v := range s.Images[i] {
		out[j] = float64(v) / 255
		if normalize {
			out[j] = (out[j] - 0.5) / 0.5
		}
	}
	return out
}

// Shuffle permutes the examples.
func (s *Set) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(s.Labels), func(i, j int) {
		s.Labels[i], s.Labels[j] = s.Labels[j], s.Labels[i]
		s.Images[i], s.Images[j] = s.Images[j], s.Images[i]
	})
}

// Head returns a view of the first n examples; n is clamped to Len.
func (s *Set) Head(n int) *Set {
	n = max(0, min(n, s.Len()))
	return &Set{Images: s.Images[:n], Labels: s.Labels[:n]}
}

// Batches returns a decode source of up to size examples per batch.
// Example ids are "<prefix>:<index>".
func (s *Set) Batches(size int, normalize bool, prefix string) decode.Source {
	if size <= 0 {
		size = 1
	}
	return func(yield func(decode.Batch) bool) {
		for start := 0; start < s.Len(); start += size {
			end := min(start+size, s.Len())
			b := decode.Batch{
				IDs:    make([]string, 0, end-start),
				Inputs: make([][]float64, 0, end-start),
				Gold:   make([]int, 0, end-start),
			}
			for i := start; i < end; i++ {
				b.IDs = append(b.IDs, fmt.Sprintf("%s:%d", prefix, i))
				b.Inputs = append(b.Inputs, s.Input(i, normalize))
				b.Gold = append(b.Gold, int(s.Labels[i]))
			}
			if !yield(b) {
				return
			}
		}
	}
}

// Load reads one split from dir, verifying the published SHA-256 digests.
// An empty dir searches SearchDirectories.
func Load(dir string, split Split) (*Set, error) {
	dirs := SearchDirectories
	if dir != "" {
		dirs = []string{dir}
	}
	img, val, digImg, digVal := split.files()
	var lastErr error
	for _, d := range dirs {
		images, err := readVerified(filepath.Join(d, img), digImg)
		if err != nil {
			lastErr = err
			continue
		}
		labels, err := readVerified(filepath.Join(d, val), digVal)
		if err != nil {
			lastErr = err
			continue
		}
		return Parse(images, labels)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no mnist search directories")
	}
	return nil, lastErr
}

// Open reads an image file and a label file without digest verification.
func Open(imagesPath, labelsPath string) (*Set, error) {
	images, err := readVerified(imagesPath, "")
	if err != nil {
		return nil, err
	}
	labels, err := readVerified(labelsPath, "")
	if err != nil {
		return nil, err
	}
	return Parse(images, labels)
}

func readVerified(name, digest string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if digest != "" {
		h := sha256.New()
		if _, err = io.Copy(h, f); err != nil {
			return nil, fmt.Errorf("cannot hash file '%s': %w", name, err)
		}
		if fmt.Sprintf("%x", h.Sum(nil)) != digest {
			return nil, fmt.Errorf("%w: '%s'", ErrDigest, name)
		}
		if _, err = f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}
	gzipReader, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip file '%s': %w", name, err)
	}
	defer gzipReader.Close()
	var uncompressedBuffer bytes.Buffer
	if _, err = uncompressedBuffer.ReadFrom(gzipReader); err != nil {
		return nil, fmt.Errorf("buffering file '%s': %w", name, err)
	}
	return uncompressedBuffer.Bytes(), nil
}

// Parse decodes uncompressed idx3 image and idx1 label data.
func Parse(images, labels []byte) (*Set, error) {
	if len(images) < 16 || binary.BigEndian.Uint32(images) != imageMagic {
		return nil, fmt.Errorf("%w: bad image header", ErrFormat)
	}
	if len(labels) < 8 || binary.BigEndian.Uint32(labels) != labelMagic {
		return nil, fmt.Errorf("%w: bad label header", ErrFormat)
	}
	count := int(binary.BigEndian.Uint32(images[4:]))
	rows := binary.BigEndian.Uint32(images[8:])
	cols := binary.BigEndian.Uint32(images[12:])
	if rows != ImgSize || cols != ImgSize {
		return nil, fmt.Errorf("%w: %dx%d images", ErrFormat, rows, cols)
	}
	if int(binary.BigEndian.Uint32(labels[4:])) != count {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrFormat, count, binary.BigEndian.Uint32(labels[4:]))
	}
	// skip headers
	images, labels = images[16:], labels[8:]
	if len(images) != count*ImgSize*ImgSize || len(labels) != count {
		return nil, fmt.Errorf("%w: truncated body", ErrFormat)
	}

	var set = &Set{
		Images: make([][ImgSize * ImgSize]byte, count),
		Labels: append([]byte(nil), labels...),
	}
	for i := range set.Images {
		copy(set.Images[i][:], images[i*ImgSize*ImgSize:])
	}
	return set, nil
}
