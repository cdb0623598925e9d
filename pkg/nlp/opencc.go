package nlp

import (
	"fmt"
	"sync"

	"github.com/longbridgeapp/opencc"
)

// OpenCCConverter converts traditional Chinese to simplified with the
// OpenCC t2s dictionaries.
// Conversions are serialized; opencc.OpenCC is not documented as safe for
// concurrent use.
type OpenCCConverter struct {
	mu sync.Mutex
	cc *opencc.OpenCC
}

// NewOpenCCConverter loads the t2s conversion tables.
func NewOpenCCConverter() (*OpenCCConverter, error) {
	cc, err := opencc.New("t2s")
	if err != nil {
		return nil, fmt.Errorf("load opencc t2s: %w", err)
	}
	return &OpenCCConverter{cc: cc}, nil
}

// ToSimplified implements ScriptConverter.
func (c *OpenCCConverter) ToSimplified(text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cc.Convert(text)
}
