// Package charset: cgo iconv backend, adapted from the go-guerrilla
// mail/iconv package. iconv supports a much larger range of legacy
// charsets than golang.org/x/text (e.g. the 8-bit code pages still found
// in older DOC/XLS and EML attachments). It's a cgo package; the build
// system needs GNU iconv headers available. Importing this file for its
// side effect alone is not enough - call UseIconv() once at startup to
// make it the active backend.
package charset

import (
	"io"

	ico "gopkg.in/iconv.v1"
)

// UseIconv switches the active charset backend to cgo iconv. Parsers that
// encounter a charset label x/text doesn't recognize (common with legacy
// OLE and EML sources) should call this once during initialization.
func UseIconv() {
	SetBackend(iconvReader)
}

func iconvReader(label string, input io.Reader) (io.Reader, error) {
	cd, err := ico.Open("UTF-8", label)
	if err != nil {
		return nil, err
	}
	return ico.NewReader(cd, input, 32), nil
}
