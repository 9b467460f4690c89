package capture

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestOptionsValidation(t *testing.T) {
	if err := KioskPNG(context.Background(), Options{OutputPath: "x.png"}); err == nil {
		t.Error("missing URL accepted")
	}
	if err := KioskPNG(context.Background(), Options{URL: "http://127.0.0.1/"}); err == nil {
		t.Error("missing output accepted")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1/", OutputPath: "out.png"}
	if err := o.normalize(); err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != 30*time.Second || o.Fs == nil {
		t.Errorf("normalized = %+v", o)
	}
}

func TestWriteAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/var/lib/signage", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := writeAtomic(fs, "/var/lib/signage/preview.png", []byte("png")); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	got, err := afero.ReadFile(fs, "/var/lib/signage/preview.png")
	if err != nil || string(got) != "png" {
		t.Errorf("read = %q, %v", got, err)
	}
	if ok, _ := afero.Exists(fs, "/var/lib/signage/preview.png.tmp"); ok {
		t.Error("temp file left behind")
	}
}
