package svtav1

import (
	"fmt"
	"strings"
)

// Param is one name/value pair for EncoderConfig.SetParameter.
type Param struct {
	Name  string
	Value string
}

func (p Param) String() string {
	return p.Name + "=" + p.Value
}

// ParseParam splits "name=value". Leading dashes on the name are dropped so
// that SvtAv1EncApp style "--keyint=120" is accepted too.
func ParseParam(s string) (Param, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimLeft(strings.TrimSpace(name), "-")
	if !ok || name == "" {
		return Param{}, fmt.Errorf("svtav1: parameter %q is not name=value", s)
	}
	return Param{Name: name, Value: strings.TrimSpace(value)}, nil
}

// SetParameters applies params in order and stops at the first rejection.
func (c *EncoderConfig) SetParameters(params []Param) error {
	for _, p := range params {
		if err := c.SetParameter(p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// cString returns s as NUL-terminated bytes. Embedded NULs are rejected.
func cString(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, ErrInvalidString
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b, nil
}
