// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// maxVectorLength bounds the length prefix of a vector read from byte stream.
const maxVectorLength = 1 << 31

// readFull reads exactly n bytes, allocating only what the stream holds.
func readFull(r io.Reader, n int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, errors.Trace(err)
	} else if int64(len(data)) != n {
		return nil, errors.Trace(io.ErrUnexpectedEOF)
	}
	return data, nil
}

// WriteDense writes a dense matrix to byte stream.
func WriteDense(w io.Writer, m *mat.Dense) error {
	if _, err := m.MarshalBinaryTo(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// ReadDense reads a dense matrix from byte stream.
func ReadDense(r io.Reader) (*mat.Dense, error) {
	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(r); err != nil {
		return nil, errors.Trace(err)
	}
	return &m, nil
}

// WriteFloats writes a length-prefixed vector to byte stream.
func WriteFloats(w io.Writer, v []float64) error {
	if err := binary.Write(w, binary.LittleEndian, int64(len(v))); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// ReadFloats reads a length-prefixed vector from byte stream.
func ReadFloats(r io.Reader) ([]float64, error) {
	var length int64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, errors.Trace(err)
	}
	if length < 0 || length > maxVectorLength {
		return nil, errors.NotValidf("vector length %d", length)
	}
	data, err := readFull(r, length*8)
	if err != nil {
		return nil, errors.Annotate(err, "fail to read vector")
	}
	v := make([]float64, length)
	if err = binary.Read(bytes.NewReader(data), binary.LittleEndian, v); err != nil {
		return nil, errors.Trace(err)
	}
	return v, nil
}

// WriteString writes string to byte stream.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// ReadString reads string from byte stream.
func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	return string(data), err
}

// WriteBytes writes bytes to byte stream.
func WriteBytes(w io.Writer, s []byte) error {
	err := binary.Write(w, binary.LittleEndian, int32(len(s)))
	if err != nil {
		return err
	}
	n, err := w.Write(s)
	if err != nil {
		return err
	} else if n != len(s) {
		return errors.New("fail to write string")
	}
	return nil
}

// ReadBytes reads bytes from byte stream.
func ReadBytes(r io.Reader) ([]byte, error) {
	var length int32
	err := binary.Read(r, binary.LittleEndian, &length)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.NotValidf("byte length %d", length)
	}
	data, err := readFull(r, int64(length))
	if err != nil {
		return nil, errors.Annotate(err, "fail to read string")
	}
	return data, nil
}

// WriteGob writes object to byte stream.
func WriteGob(w io.Writer, v interface{}) error {
	buffer := bytes.NewBuffer(nil)
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(v)
	if err != nil {
		return err
	}
	return WriteBytes(w, buffer.Bytes())
}

// ReadGob read object from byte stream.
func ReadGob(r io.Reader, v interface{}) error {
	data, err := ReadBytes(r)
	if err != nil {
		return err
	}
	buffer := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buffer)
	return decoder.Decode(v)
}
