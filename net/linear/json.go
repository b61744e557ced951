package linear

import "compress/lzw"
import "encoding/json"
import "io"
import "os"

// WriteCompressedWeightsToFile writes model weights to a lzw file
func (l *Linear) WriteCompressedWeightsToFile(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = l.WriteCompressedWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteCompressedWeights writes model weights to a writer
func (l *Linear) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	if err := json.NewEncoder(lw).Encode(l); err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

// ReadCompressedWeightsFromFile reads model weights from a lzw file
func ReadCompressedWeightsFromFile(name string) (*Linear, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCompressedWeights(file)
}

// ReadCompressedWeights reads model weights from a reader
func ReadCompressedWeights(r io.Reader) (*Linear, error) {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	var l = &Linear{training: true}
	if err := json.NewDecoder(lr).Decode(l); err != nil {
		return nil, err
	}
	if err := l.check(); err != nil {
		return nil, err
	}
	return l, nil
}
