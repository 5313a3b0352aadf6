package imaging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Embedder writes descriptive metadata plus camera-like provenance fields
// into a final JPEG artifact. Strictly best-effort: every failure is logged
// and swallowed, pipeline status is never affected.
type Embedder struct {
	log *zerolog.Logger
	rnd *rand.Rand
}

func NewEmbedder(logger *zerolog.Logger) *Embedder {
	l := logger.With().Str("component", "MetadataEmbedder").Logger()
	return &Embedder{
		log: &l,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type camera struct {
	make  string
	model string
}

var cameras = []camera{
	{"Canon", "Canon EOS R6"},
	{"NIKON CORPORATION", "NIKON Z 6_2"},
	{"SONY", "ILCE-7M4"},
	{"FUJIFILM", "X-T5"},
	{"Apple", "iPhone 15 Pro"},
	{"samsung", "SM-S928B"},
}

type cityCoord struct {
	lat, lon float64
}

// Approximate city-center coordinates used for provenance GPS fields.
var cityCoords = []cityCoord{
	{40.7128, -74.0060},  // New York
	{51.5074, -0.1278},   // London
	{48.8566, 2.3522},    // Paris
	{35.6762, 139.6503},  // Tokyo
	{-33.8688, 151.2093}, // Sydney
	{52.5200, 13.4050},   // Berlin
	{43.6532, -79.3832},  // Toronto
	{52.3676, 4.9041},    // Amsterdam
}

var exposureDenoms = []uint32{60, 125, 250, 500, 1000, 2000}
var fNumbers = [][2]uint32{{18, 10}, {28, 10}, {40, 10}, {56, 10}}
var isoValues = []uint16{100, 200, 400, 800}
var focalLengths = [][2]uint32{{24, 1}, {35, 1}, {50, 1}, {85, 1}}

// Embed inserts an EXIF APP1 segment into the JPEG at path. Never returns;
// failures are logged only.
func (e *Embedder) Embed(path, title, description string, keywords []string) {
	if err := e.embed(path, title, description, keywords); err != nil {
		e.log.Warn().Err(err).Str("path", path).Msg("metadata embedding skipped")
	}
}

func (e *Embedder) embed(path, title, description string, keywords []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return fmt.Errorf("not a jpeg")
	}

	exif := e.buildExif(title, description, keywords)
	if len(exif) > 0xFFFD {
		return fmt.Errorf("exif payload too large")
	}

	// APP1 marker + length + payload, inserted right after SOI.
	seg := make([]byte, 4+len(exif))
	seg[0], seg[1] = 0xFF, 0xE1
	binary.BigEndian.PutUint16(seg[2:4], uint16(len(exif)+2))
	copy(seg[4:], exif)

	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:2]...)
	out = append(out, seg...)
	out = append(out, data[2:]...)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// TIFF field types used below.
const (
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte // raw payload; stored inline when <= 4 bytes
}

func asciiEntry(tag uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func shortEntry(tag uint16, v uint16) ifdEntry {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return ifdEntry{tag: tag, typ: typeShort, count: 1, data: b}
}

func longEntry(tag uint16, v uint32) ifdEntry {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return ifdEntry{tag: tag, typ: typeLong, count: 1, data: b}
}

func rationalEntry(tag uint16, num, den uint32) ifdEntry {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], num)
	binary.BigEndian.PutUint32(b[4:8], den)
	return ifdEntry{tag: tag, typ: typeRational, count: 1, data: b}
}

func rational3Entry(tag uint16, vals [3][2]uint32) ifdEntry {
	b := make([]byte, 24)
	for i, v := range vals {
		binary.BigEndian.PutUint32(b[i*8:], v[0])
		binary.BigEndian.PutUint32(b[i*8+4:], v[1])
	}
	return ifdEntry{tag: tag, typ: typeRational, count: 3, data: b}
}

func undefinedEntry(tag uint16, b []byte) ifdEntry {
	return ifdEntry{tag: tag, typ: typeUndefined, count: uint32(len(b)), data: b}
}

// ifdSize is the byte length of the IFD table itself plus its external data.
func ifdSize(entries []ifdEntry) uint32 {
	size := uint32(2 + 12*len(entries) + 4)
	for _, en := range entries {
		if len(en.data) > 4 {
			size += uint32(len(en.data) + len(en.data)%2)
		}
	}
	return size
}

// writeIFD serializes entries at ifdOffset (relative to TIFF header start).
func writeIFD(buf *bytes.Buffer, entries []ifdEntry, ifdOffset uint32) {
	_ = binary.Write(buf, binary.BigEndian, uint16(len(entries)))
	dataOffset := ifdOffset + uint32(2+12*len(entries)+4)
	var external []byte
	for _, en := range entries {
		_ = binary.Write(buf, binary.BigEndian, en.tag)
		_ = binary.Write(buf, binary.BigEndian, en.typ)
		_ = binary.Write(buf, binary.BigEndian, en.count)
		if len(en.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, en.data)
			buf.Write(inline)
			continue
		}
		_ = binary.Write(buf, binary.BigEndian, dataOffset)
		padded := en.data
		if len(padded)%2 == 1 {
			padded = append(padded, 0)
		}
		external = append(external, padded...)
		dataOffset += uint32(len(padded))
	}
	buf.Write([]byte{0, 0, 0, 0}) // next IFD offset
	buf.Write(external)
}

func (e *Embedder) buildExif(title, description string, keywords []string) []byte {
	cam := cameras[e.rnd.Intn(len(cameras))]
	city := cityCoords[e.rnd.Intn(len(cityCoords))]
	// Capture timestamp inside a recent 30-day window.
	shot := time.Now().Add(-time.Duration(e.rnd.Intn(30*24)) * time.Hour)
	stamp := shot.Format("2006:01:02 15:04:05")

	comment := title
	if len(keywords) > 0 {
		comment += " | " + strings.Join(keywords, ", ")
	}
	userComment := append([]byte("ASCII\x00\x00\x00"), []byte(comment)...)

	exifEntries := []ifdEntry{
		rationalEntry(0x829A, 1, exposureDenoms[e.rnd.Intn(len(exposureDenoms))]), // ExposureTime
		rationalEntry(0x829D, fNumbers[e.rnd.Intn(len(fNumbers))][0], 10),         // FNumber
		shortEntry(0x8827, isoValues[e.rnd.Intn(len(isoValues))]),                 // ISO
		asciiEntry(0x9003, stamp),                                                 // DateTimeOriginal
		undefinedEntry(0x9286, userComment),                                       // UserComment
		rationalEntry(0x920A, focalLengths[e.rnd.Intn(len(focalLengths))][0], 1),  // FocalLength
	}

	latRef, lonRef := "N", "E"
	if city.lat < 0 {
		latRef = "S"
	}
	if city.lon < 0 {
		lonRef = "W"
	}
	gpsEntries := []ifdEntry{
		asciiEntry(0x0001, latRef),
		rational3Entry(0x0002, degMinSec(city.lat)),
		asciiEntry(0x0003, lonRef),
		rational3Entry(0x0004, degMinSec(city.lon)),
	}

	ifd0Entries := []ifdEntry{
		asciiEntry(0x010E, description),   // ImageDescription
		asciiEntry(0x010F, cam.make),      // Make
		asciiEntry(0x0110, cam.model),     // Model
		asciiEntry(0x0132, stamp),         // DateTime
		longEntry(0x8769, 0),              // ExifIFDPointer, patched below
		longEntry(0x8825, 0),              // GPSIFDPointer, patched below
	}

	exifOffset := 8 + ifdSize(ifd0Entries)
	gpsOffset := exifOffset + ifdSize(exifEntries)
	binary.BigEndian.PutUint32(ifd0Entries[4].data, exifOffset)
	binary.BigEndian.PutUint32(ifd0Entries[5].data, gpsOffset)

	var buf bytes.Buffer
	buf.WriteString("Exif\x00\x00")
	buf.WriteString("MM")                                // big-endian TIFF
	_ = binary.Write(&buf, binary.BigEndian, uint16(42)) // TIFF magic
	_ = binary.Write(&buf, binary.BigEndian, uint32(8))  // IFD0 offset
	writeIFD(&buf, ifd0Entries, 8)
	writeIFD(&buf, exifEntries, exifOffset)
	writeIFD(&buf, gpsEntries, gpsOffset)
	return buf.Bytes()
}

// degMinSec converts a decimal coordinate into EXIF degree/minute/second
// rationals (seconds carry two decimal places).
func degMinSec(v float64) [3][2]uint32 {
	v = math.Abs(v)
	deg := math.Floor(v)
	minF := (v - deg) * 60
	min := math.Floor(minF)
	sec := (minF - min) * 60
	return [3][2]uint32{
		{uint32(deg), 1},
		{uint32(min), 1},
		{uint32(sec*100 + 0.5), 100},
	}
}
