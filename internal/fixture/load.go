package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/weft/internal/ic"
)

// IRVersion is the fixture format this package writes and fully
// understands.
const IRVersion = "1.1.0"

// SupportedIRVersions is the range of ir_version values Build accepts.
const SupportedIRVersions = ">= 1.0.0, < 2.0.0"

// opImplementationsSince is the first version with op_implementations.
var opImplementationsSince = semver.MustParse("1.1.0")

var supported = func() *semver.Constraints {
	c, err := semver.NewConstraint(SupportedIRVersions)
	if err != nil {
		panic(err)
	}
	return c
}()

// Load reads and builds the program in the fixture at path.
func Load(path string) (*ic.Program, error) {
	d, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	p, err := Build(d)
	return p, withFile(err, path)
}

// LoadDocument reads and decodes the fixture at path without building it.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, File: path, Message: err.Error()}
	}
	return Decode(data, path)
}

// Decode parses fixture YAML. Unknown keys are errors.
func Decode(data []byte, filename string) (*Document, error) {
	var d Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Code: ErrCodeParse, File: filename, Message: "empty document"}
		}
		return nil, &Error{Code: ErrCodeParse, File: filename, Message: err.Error()}
	}
	return &d, nil
}

// Parse decodes and builds fixture YAML.
func Parse(data []byte, filename string) (*ic.Program, error) {
	d, err := Decode(data, filename)
	if err != nil {
		return nil, err
	}
	p, err := Build(d)
	return p, withFile(err, filename)
}

func checkVersion(d *Document) error {
	if d.IRVersion == "" {
		return &Error{Code: ErrCodeVersion, At: "ir_version", Message: "ir_version is required"}
	}
	v, err := semver.NewVersion(d.IRVersion)
	if err != nil {
		return &Error{Code: ErrCodeVersion, At: "ir_version", Message: err.Error()}
	}
	if !supported.Check(v) {
		return &Error{Code: ErrCodeVersion, At: "ir_version",
			Message: fmt.Sprintf("%s does not satisfy %s", v, SupportedIRVersions)}
	}
	if len(d.OpImplementations) > 0 && v.LessThan(opImplementationsSince) {
		return &Error{Code: ErrCodeVersion, At: "op_implementations",
			Message: fmt.Sprintf("requires ir_version %s or later", opImplementationsSince)}
	}
	return nil
}

func withFile(err error, file string) error {
	var fe *Error
	if errors.As(err, &fe) && fe.File == "" {
		fe.File = file
	}
	return err
}
