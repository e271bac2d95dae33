package fonts

import (
	"testing"

	"golang.org/x/image/font"
)

func TestCacheFace(t *testing.T) {
	c := NewCache()
	f, err := c.Face(13, true)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	if w := font.MeasureString(f, "Pizza"); w <= 0 {
		t.Errorf("MeasureString = %v, want > 0", w)
	}

	again, _ := c.Face(13.1, true)
	if again != f {
		t.Error("Face(13.1) did not reuse the 13px face")
	}
	regular, _ := c.Face(13, false)
	if regular == f {
		t.Error("regular and bold share a face")
	}

	tiny, err := c.Face(0, false)
	if err != nil || tiny == nil {
		t.Errorf("Face(0) = %v, %v", tiny, err)
	}
}
