package copymgr

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/pdok/osmflex/mapslicehelp"
)

// Line builds one row in COPY text format. It is obtained from
// Manager.NewLine and queued by Finish, which may be called once.
type Line struct {
	mgr      *Manager
	target   *TargetDescr
	buf      bytes.Buffer
	columns  int
	finished bool
}

func (l *Line) sep() {
	if l.columns > 0 {
		l.buf.WriteByte('\t')
	}
	l.columns++
}

func (l *Line) AddInt(v int64) {
	l.sep()
	l.buf.WriteString(strconv.FormatInt(v, 10))
}

func (l *Line) AddFloat(v float64) {
	l.sep()
	l.buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

func (l *Line) AddBool(v bool) {
	l.sep()
	if v {
		l.buf.WriteByte('t')
	} else {
		l.buf.WriteByte('f')
	}
}

func (l *Line) AddText(v string) {
	l.sep()
	writeEscaped(&l.buf, v)
}

func (l *Line) AddNull() {
	l.sep()
	l.buf.WriteString(`\N`)
}

// AddHstore writes an hstore value with keys in sorted order. An empty map
// is written as NULL.
func (l *Line) AddHstore(m map[string]string) {
	if len(m) == 0 {
		l.AddNull()
		return
	}
	l.sep()
	var hs bytes.Buffer
	for i, k := range mapslicehelp.SortedKeys(m) {
		if i > 0 {
			hs.WriteByte(',')
		}
		writeHstoreElem(&hs, k)
		hs.WriteString("=>")
		writeHstoreElem(&hs, m[k])
	}
	writeEscaped(&l.buf, hs.String())
}

// AddGeom writes a (E)WKB geometry as hex. An empty geometry is written as
// NULL.
func (l *Line) AddGeom(wkb []byte) {
	if len(wkb) == 0 {
		l.AddNull()
		return
	}
	l.sep()
	dst := make([]byte, hex.EncodedLen(len(wkb)))
	hex.Encode(dst, wkb)
	l.buf.Write(bytes.ToUpper(dst))
}

// Finish hands the completed row to the manager.
func (l *Line) Finish() error {
	return l.mgr.finishLine(l)
}

func writeHstoreElem(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
}

// writeEscaped applies the COPY text format escaping.
func writeEscaped(b *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
}
