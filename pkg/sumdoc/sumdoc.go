package sumdoc

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	MagicString      = "SUMDOC01"
	VersionV1        = uint16(1)
	FlagRandomAccess = uint16(1 << 0)

	// ObjectReplacement marks an embed position in Text.
	ObjectReplacement = '\uFFFC'

	magicLen   = len(MagicString)
	headerSize = magicLen + 2 + 2 + 8 + 4
	tocEntSize = 8 + 1 + 8 + 4 + 4
	styleEntSz = 4 + 4 + 1
	lineEntSz  = 4 + 1

	secureMagic      = "SUMDOC_SEALED"
	secureVersionV1  = uint16(1)
	secureFlagComp   = uint16(1 << 0)
	secureFlagEnc    = uint16(1 << 1)
	secureSaltSize   = 16
	secureNonceSize  = 12
	secureHeaderSize = len(secureMagic) + 2 + 2 + secureSaltSize + secureNonceSize + 8
	kdfIterations    = 200000
)

type BlockKind uint8

const (
	BlockKindMetadata BlockKind = 0
	BlockKindText     BlockKind = 1
	BlockKindStyle    BlockKind = 2
	BlockKindLines    BlockKind = 3
	BlockKindEmbeds   BlockKind = 4
)

const (
	metaBlockID   = uint64(1)
	textBlockID   = uint64(2)
	styleBlockID  = uint64(3)
	linesBlockID  = uint64(4)
	embedsBlockID = uint64(5)
)

type EncryptionOptions struct {
	Enabled  bool
	Password string
}

type SaveOptions struct {
	Compression bool
	Encryption  EncryptionOptions
}

type LoadOptions struct {
	Password string
}

type EnvelopeInfo struct {
	Wrapped     bool
	Compressed  bool
	Encrypted   bool
	EnvelopeVer uint16
}

// Document is a summary in storage form. Offsets are rune indices into Text.
type Document struct {
	Metadata Metadata
	Text     string
	Runs     []StyleRun
	Lines    []LineEntry
	Embeds   []EmbedEntry
}

type Metadata struct {
	Author       string
	Title        string
	CreatedUnix  int64
	ModifiedUnix int64
	FontSizePt   uint16
}

type StyleAttr struct {
	Bold      bool
	Italic    bool
	Underline bool
	Highlight bool
	Code      bool
}

type StyleRun struct {
	Start uint32
	End   uint32
	Attr  StyleAttr
}

// LineEntry records the block format of the line ending at Offset.
type LineEntry struct {
	Offset uint32
	Format uint8
}

type EmbedEntry struct {
	Offset uint32
	Kind   string
	Value  string
}

type tocEntry struct {
	ID     uint64
	Kind   BlockKind
	Offset uint64
	Length uint32
	CRC32  uint32
}

type payloadEntry struct {
	ID      uint64
	Kind    BlockKind
	Payload []byte
}

var (
	ErrInvalidMagic      = errors.New("sumdoc: invalid magic")
	ErrUnsupportedVer    = errors.New("sumdoc: unsupported version")
	ErrMissingRandomFlag = errors.New("sumdoc: random-access flag required")
	ErrInvalidTOC        = errors.New("sumdoc: invalid toc")
	ErrInvalidBlockRange = errors.New("sumdoc: invalid block range")
	ErrOverlappingBlocks = errors.New("sumdoc: overlapping block ranges")
	ErrChecksum          = errors.New("sumdoc: checksum mismatch")
	ErrPasswordRequired  = errors.New("sumdoc: password required")
	ErrInvalidPassword   = errors.New("sumdoc: invalid password")
	ErrInvalidSecureFile = errors.New("sumdoc: invalid secure file")
)

func NewDocument(author, title string) *Document {
	now := time.Now().Unix()
	return &Document{
		Metadata: Metadata{Author: author, Title: title, CreatedUnix: now, ModifiedUnix: now, FontSizePt: 14},
		Text:     "\n",
	}
}

func Save(path string, doc *Document) error {
	return SaveWithOptions(path, doc, SaveOptions{})
}

func SaveWithOptions(path string, doc *Document, opts SaveOptions) error {
	if doc == nil {
		return errors.New("sumdoc: document is nil")
	}
	now := time.Now().Unix()
	if doc.Metadata.CreatedUnix == 0 {
		doc.Metadata.CreatedUnix = now
	}
	doc.Metadata.ModifiedUnix = now

	blob, err := Encode(doc, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Encode validates doc and produces the file bytes, wrapped in the secure
// envelope when compression or encryption is requested.
func Encode(doc *Document, opts SaveOptions) ([]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	blob := encodeDocument(doc)
	var err error
	if opts.Compression {
		blob, err = compressBytes(blob)
		if err != nil {
			return nil, err
		}
	}
	if opts.Encryption.Enabled && strings.TrimSpace(opts.Encryption.Password) == "" {
		return nil, ErrPasswordRequired
	}
	if opts.Compression || opts.Encryption.Enabled {
		blob, err = encodeSecureEnvelope(blob, opts)
		if err != nil {
			return nil, err
		}
	}
	return blob, nil
}

func Load(path string) (*Document, error) {
	return LoadWithOptions(path, LoadOptions{})
}

func LoadWithOptions(path string, opts LoadOptions) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b, opts)
}

func Decode(b []byte, opts LoadOptions) (*Document, error) {
	if isSecureEnvelope(b) {
		var err error
		b, err = decodeSecureEnvelope(b, opts)
		if err != nil {
			return nil, err
		}
	}
	doc, err := decodeDocument(b)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func InspectEnvelope(path string) (EnvelopeInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return inspectEnvelopeBytes(b)
}

func Validate(doc *Document) error {
	if doc == nil {
		return errors.New("sumdoc: document is nil")
	}
	if !utf8.ValidString(doc.Metadata.Author) || !utf8.ValidString(doc.Metadata.Title) {
		return errors.New("sumdoc: metadata fields must be valid UTF-8")
	}
	if !utf8.ValidString(doc.Text) {
		return errors.New("sumdoc: text is not valid UTF-8")
	}
	runes := []rune(doc.Text)
	n := uint32(len(runes))
	if n == 0 || runes[n-1] != '\n' {
		return errors.New("sumdoc: text must end with a newline")
	}

	runs := append([]StyleRun(nil), doc.Runs...)
	sort.Slice(runs, func(i, j int) bool { return runs[i].Start < runs[j].Start })
	var lastEnd uint32
	for i, r := range runs {
		if r.Start >= r.End || r.End > n {
			return fmt.Errorf("sumdoc: invalid run range %d..%d", r.Start, r.End)
		}
		if i > 0 && r.Start < lastEnd {
			return fmt.Errorf("sumdoc: overlapping style runs around offset %d", r.Start)
		}
		lastEnd = r.End
	}

	for _, l := range doc.Lines {
		if l.Offset >= n || runes[l.Offset] != '\n' {
			return fmt.Errorf("sumdoc: line format at %d is not on a newline", l.Offset)
		}
	}

	slots := 0
	for _, r := range runes {
		if r == ObjectReplacement {
			slots++
		}
	}
	if slots != len(doc.Embeds) {
		return fmt.Errorf("sumdoc: %d embed slots but %d embeds", slots, len(doc.Embeds))
	}
	for _, e := range doc.Embeds {
		if e.Offset >= n || runes[e.Offset] != ObjectReplacement {
			return fmt.Errorf("sumdoc: embed at %d has no slot", e.Offset)
		}
		if e.Kind == "" {
			return fmt.Errorf("sumdoc: embed at %d has no kind", e.Offset)
		}
	}
	return nil
}

func encodeDocument(doc *Document) []byte {
	payloads := []payloadEntry{
		{ID: metaBlockID, Kind: BlockKindMetadata, Payload: encodeMetadata(doc.Metadata)},
		{ID: textBlockID, Kind: BlockKindText, Payload: appendString(nil, doc.Text)},
		{ID: styleBlockID, Kind: BlockKindStyle, Payload: encodeRuns(doc.Runs)},
		{ID: linesBlockID, Kind: BlockKindLines, Payload: encodeLines(doc.Lines)},
		{ID: embedsBlockID, Kind: BlockKindEmbeds, Payload: encodeEmbeds(doc.Embeds)},
	}

	tocOffset := uint64(headerSize)
	out := make([]byte, headerSize+len(payloads)*tocEntSize)
	copy(out[:magicLen], MagicString)

	entries := make([]tocEntry, 0, len(payloads))
	offset := uint64(len(out))
	for _, p := range payloads {
		entries = append(entries, tocEntry{
			ID:     p.ID,
			Kind:   p.Kind,
			Offset: offset,
			Length: uint32(len(p.Payload)),
			CRC32:  crc32.ChecksumIEEE(p.Payload),
		})
		out = append(out, p.Payload...)
		offset += uint64(len(p.Payload))
	}

	ptr := headerSize
	for _, e := range entries {
		binary.LittleEndian.PutUint64(out[ptr:ptr+8], e.ID)
		out[ptr+8] = byte(e.Kind)
		binary.LittleEndian.PutUint64(out[ptr+9:ptr+17], e.Offset)
		binary.LittleEndian.PutUint32(out[ptr+17:ptr+21], e.Length)
		binary.LittleEndian.PutUint32(out[ptr+21:ptr+25], e.CRC32)
		ptr += tocEntSize
	}

	binary.LittleEndian.PutUint16(out[magicLen:magicLen+2], VersionV1)
	binary.LittleEndian.PutUint16(out[magicLen+2:magicLen+4], FlagRandomAccess)
	binary.LittleEndian.PutUint64(out[magicLen+4:magicLen+12], tocOffset)
	binary.LittleEndian.PutUint32(out[magicLen+12:magicLen+16], uint32(len(entries)))
	return out
}

func decodeDocument(blob []byte) (*Document, error) {
	if len(blob) < headerSize || string(blob[:magicLen]) != MagicString {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(blob[magicLen : magicLen+2]); v != VersionV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVer, v)
	}
	if flags := binary.LittleEndian.Uint16(blob[magicLen+2 : magicLen+4]); flags&FlagRandomAccess == 0 {
		return nil, ErrMissingRandomFlag
	}

	tocOffset := binary.LittleEndian.Uint64(blob[magicLen+4 : magicLen+12])
	tocCount := binary.LittleEndian.Uint32(blob[magicLen+12 : magicLen+16])
	if tocOffset > uint64(len(blob)) {
		return nil, ErrInvalidTOC
	}
	if tocOffset+uint64(tocCount)*uint64(tocEntSize) > uint64(len(blob)) {
		return nil, ErrInvalidTOC
	}

	entries := make([]tocEntry, 0, tocCount)
	ptr := int(tocOffset)
	for i := 0; i < int(tocCount); i++ {
		entries = append(entries, tocEntry{
			ID:     binary.LittleEndian.Uint64(blob[ptr : ptr+8]),
			Kind:   BlockKind(blob[ptr+8]),
			Offset: binary.LittleEndian.Uint64(blob[ptr+9 : ptr+17]),
			Length: binary.LittleEndian.Uint32(blob[ptr+17 : ptr+21]),
			CRC32:  binary.LittleEndian.Uint32(blob[ptr+21 : ptr+25]),
		})
		ptr += tocEntSize
	}
	if err := validateEntryRanges(entries, len(blob)); err != nil {
		return nil, err
	}

	doc := &Document{}
	for _, e := range entries {
		payload := blob[e.Offset : e.Offset+uint64(e.Length)]
		if crc32.ChecksumIEEE(payload) != e.CRC32 {
			return nil, fmt.Errorf("%w: block %d", ErrChecksum, e.ID)
		}
		var err error
		switch e.Kind {
		case BlockKindMetadata:
			doc.Metadata, err = decodeMetadata(payload)
		case BlockKindText:
			var ok bool
			if doc.Text, _, ok = readString(payload); !ok {
				err = errors.New("sumdoc: malformed text block")
			}
		case BlockKindStyle:
			doc.Runs, err = decodeRuns(payload)
		case BlockKindLines:
			doc.Lines, err = decodeLines(payload)
		case BlockKindEmbeds:
			doc.Embeds, err = decodeEmbeds(payload)
		default:
			// Forward compatible: unknown kinds remain skippable via TOC.
		}
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func validateEntryRanges(entries []tocEntry, fileLen int) error {
	type rng struct{ start, end uint64 }
	ranges := make([]rng, 0, len(entries))
	for _, e := range entries {
		end := e.Offset + uint64(e.Length)
		if e.Offset > uint64(fileLen) || end > uint64(fileLen) {
			return ErrInvalidBlockRange
		}
		ranges = append(ranges, rng{start: e.Offset, end: end})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	for i := 1; i < len(ranges); i++ {
		if ranges[i].start < ranges[i-1].end {
			return ErrOverlappingBlocks
		}
	}
	return nil
}

func encodeMetadata(m Metadata) []byte {
	out := make([]byte, 0, 64)
	out = appendString(out, m.Author)
	out = appendString(out, m.Title)
	out = appendU64(out, uint64(m.CreatedUnix))
	out = appendU64(out, uint64(m.ModifiedUnix))
	out = appendU16(out, m.FontSizePt)
	return out
}

func decodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	var ok bool
	if m.Author, b, ok = readString(b); !ok {
		return m, errors.New("sumdoc: malformed metadata author")
	}
	if m.Title, b, ok = readString(b); !ok {
		return m, errors.New("sumdoc: malformed metadata title")
	}
	if len(b) < 18 {
		return m, errors.New("sumdoc: malformed metadata settings")
	}
	m.CreatedUnix = int64(binary.LittleEndian.Uint64(b[:8]))
	m.ModifiedUnix = int64(binary.LittleEndian.Uint64(b[8:16]))
	m.FontSizePt = binary.LittleEndian.Uint16(b[16:18])
	return m, nil
}

func encodeAttr(a StyleAttr) byte {
	flags := byte(0)
	if a.Bold {
		flags |= 1
	}
	if a.Italic {
		flags |= 2
	}
	if a.Underline {
		flags |= 4
	}
	if a.Highlight {
		flags |= 8
	}
	if a.Code {
		flags |= 16
	}
	return flags
}

func decodeAttr(flags byte) StyleAttr {
	return StyleAttr{
		Bold:      flags&1 != 0,
		Italic:    flags&2 != 0,
		Underline: flags&4 != 0,
		Highlight: flags&8 != 0,
		Code:      flags&16 != 0,
	}
}

func encodeRuns(runs []StyleRun) []byte {
	out := make([]byte, 0, 4+len(runs)*styleEntSz)
	out = appendU32(out, uint32(len(runs)))
	for _, r := range runs {
		out = appendU32(out, r.Start)
		out = appendU32(out, r.End)
		out = append(out, encodeAttr(r.Attr))
	}
	return out
}

func decodeRuns(b []byte) ([]StyleRun, error) {
	if len(b) < 4 {
		return nil, errors.New("sumdoc: malformed style block")
	}
	count := int(binary.LittleEndian.Uint32(b[:4]))
	b = b[4:]
	if len(b) != count*styleEntSz {
		return nil, errors.New("sumdoc: malformed style entry length")
	}
	out := make([]StyleRun, 0, count)
	for i := 0; i < count; i++ {
		e := b[i*styleEntSz:]
		out = append(out, StyleRun{
			Start: binary.LittleEndian.Uint32(e[0:4]),
			End:   binary.LittleEndian.Uint32(e[4:8]),
			Attr:  decodeAttr(e[8]),
		})
	}
	return out, nil
}

func encodeLines(lines []LineEntry) []byte {
	out := make([]byte, 0, 4+len(lines)*lineEntSz)
	out = appendU32(out, uint32(len(lines)))
	for _, l := range lines {
		out = appendU32(out, l.Offset)
		out = append(out, l.Format)
	}
	return out
}

func decodeLines(b []byte) ([]LineEntry, error) {
	if len(b) < 4 {
		return nil, errors.New("sumdoc: malformed lines block")
	}
	count := int(binary.LittleEndian.Uint32(b[:4]))
	b = b[4:]
	if len(b) != count*lineEntSz {
		return nil, errors.New("sumdoc: malformed line entry length")
	}
	out := make([]LineEntry, 0, count)
	for i := 0; i < count; i++ {
		e := b[i*lineEntSz:]
		out = append(out, LineEntry{Offset: binary.LittleEndian.Uint32(e[0:4]), Format: e[4]})
	}
	return out, nil
}

func encodeEmbeds(embeds []EmbedEntry) []byte {
	out := appendU32(nil, uint32(len(embeds)))
	for _, e := range embeds {
		out = appendU32(out, e.Offset)
		out = appendString(out, e.Kind)
		out = appendString(out, e.Value)
	}
	return out
}

func decodeEmbeds(b []byte) ([]EmbedEntry, error) {
	if len(b) < 4 {
		return nil, errors.New("sumdoc: malformed embeds block")
	}
	count := int(binary.LittleEndian.Uint32(b[:4]))
	b = b[4:]
	out := make([]EmbedEntry, 0)
	for i := 0; i < count; i++ {
		if len(b) < 4 {
			return nil, errors.New("sumdoc: malformed embed entry")
		}
		e := EmbedEntry{Offset: binary.LittleEndian.Uint32(b[:4])}
		var ok bool
		if e.Kind, b, ok = readString(b[4:]); !ok {
			return nil, errors.New("sumdoc: malformed embed kind")
		}
		if e.Value, b, ok = readString(b); !ok {
			return nil, errors.New("sumdoc: malformed embed value")
		}
		out = append(out, e)
	}
	return out, nil
}

func appendString(dst []byte, s string) []byte {
	dst = appendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

func readString(src []byte) (string, []byte, bool) {
	if len(src) < 4 {
		return "", nil, false
	}
	ln := int(binary.LittleEndian.Uint32(src[:4]))
	src = src[4:]
	if len(src) < ln {
		return "", nil, false
	}
	return string(src[:ln]), src[ln:], true
}

func appendU16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func appendU32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func appendU64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

func isSecureEnvelope(b []byte) bool {
	return len(b) >= len(secureMagic) && string(b[:len(secureMagic)]) == secureMagic
}

func inspectEnvelopeBytes(b []byte) (EnvelopeInfo, error) {
	info := EnvelopeInfo{}
	if !isSecureEnvelope(b) {
		return info, nil
	}
	if len(b) < secureHeaderSize {
		return info, ErrInvalidSecureFile
	}
	version := binary.LittleEndian.Uint16(b[len(secureMagic) : len(secureMagic)+2])
	if version != secureVersionV1 {
		return info, fmt.Errorf("%w: secure envelope version %d", ErrUnsupportedVer, version)
	}
	flags := binary.LittleEndian.Uint16(b[len(secureMagic)+2 : len(secureMagic)+4])
	info.Wrapped = true
	info.Compressed = flags&secureFlagComp != 0
	info.Encrypted = flags&secureFlagEnc != 0
	info.EnvelopeVer = version
	return info, nil
}

func deriveAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encodeSecureEnvelope(payload []byte, opts SaveOptions) ([]byte, error) {
	flags := uint16(0)
	if opts.Compression {
		flags |= secureFlagComp
	}
	if opts.Encryption.Enabled {
		flags |= secureFlagEnc
	}

	salt := make([]byte, secureSaltSize)
	nonce := make([]byte, secureNonceSize)
	if opts.Encryption.Enabled {
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, err
		}
		gcm, err := deriveAEAD(opts.Encryption.Password, salt)
		if err != nil {
			return nil, err
		}
		payload = gcm.Seal(nil, nonce, payload, nil)
	}

	out := make([]byte, 0, secureHeaderSize+len(payload))
	out = append(out, secureMagic...)
	out = appendU16(out, secureVersionV1)
	out = appendU16(out, flags)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = appendU64(out, uint64(len(payload)))
	return append(out, payload...), nil
}

func decodeSecureEnvelope(b []byte, opts LoadOptions) ([]byte, error) {
	info, err := inspectEnvelopeBytes(b)
	if err != nil {
		return nil, err
	}
	if !info.Wrapped {
		return nil, ErrInvalidSecureFile
	}
	p := len(secureMagic) + 4
	salt := b[p : p+secureSaltSize]
	p += secureSaltSize
	nonce := b[p : p+secureNonceSize]
	p += secureNonceSize
	payloadLen := binary.LittleEndian.Uint64(b[p : p+8])
	if uint64(len(b)-secureHeaderSize) != payloadLen {
		return nil, ErrInvalidSecureFile
	}
	payload := append([]byte(nil), b[secureHeaderSize:]...)

	if info.Encrypted {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, ErrPasswordRequired
		}
		gcm, err := deriveAEAD(opts.Password, salt)
		if err != nil {
			return nil, err
		}
		payload, err = gcm.Open(nil, nonce, payload, nil)
		if err != nil {
			return nil, ErrInvalidPassword
		}
	}
	if info.Compressed {
		payload, err = decompressBytes(payload)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func compressBytes(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBytes(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
