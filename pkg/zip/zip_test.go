package zip

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func entry(name, body string) Entry {
	return Entry{Filename: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}}
}

func TestWriteArchive(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Entry{
		entry("runs/abc/final_output.mp4", "video"),
		entry("runs/abc/run.log", "log"),
		entry("other/final_output.mp4", "video2"),
	})
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	want := map[string]string{"final_output.mp4": "video", "run.log": "log", "final_output_2.mp4": "video2"}
	if len(zr.File) != len(want) {
		t.Fatalf("entries = %d, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if want[f.Name] != string(data) {
			t.Fatalf("%s = %q, want %q", f.Name, data, want[f.Name])
		}
	}
}

func TestWriteStopsOnOpenError(t *testing.T) {
	boom := errors.New("missing object")
	err := Write(io.Discard, []Entry{{Filename: "a.mp4", Open: func() (io.ReadCloser, error) { return nil, boom }}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
