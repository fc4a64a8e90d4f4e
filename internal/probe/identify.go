package probe

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	bannerReadLimit  = 1024
	bannerLabelRunes = 50
	otherLabelRunes  = 30

	// LabelUnknown is used when a port answers but says nothing useful.
	LabelUnknown = "Unknown"
)

var wellKnownServices = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	135:  "RPC",
	139:  "NetBIOS",
	143:  "IMAP",
	443:  "HTTPS",
	993:  "IMAPS",
	995:  "POP3S",
	1723: "PPTP",
	3389: "RDP",
	5900: "VNC",
	8080: "HTTP-Alt",
}

var webPorts = map[int]bool{80: true, 8000: true, 8080: true, 8443: true}

var httpGreeting = []byte("GET / HTTP/1.0\r\n\r\n")

// WellKnownService returns the static label for a port, if any.
func WellKnownService(port int) (string, bool) {
	s, ok := wellKnownServices[port]
	return s, ok
}

// Identify labels the service behind an open connection. Ports in the static
// table are labelled without any I/O. Otherwise a web-like port is sent an
// HTTP request and up to 1024 bytes are read within timeout.
func Identify(conn net.Conn, port int, timeout time.Duration) string {
	if s, ok := WellKnownService(port); ok {
		return s
	}

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return LabelUnknown
	}
	if webPorts[port] {
		if _, err := conn.Write(httpGreeting); err != nil {
			return LabelUnknown
		}
	}

	buf := make([]byte, bannerReadLimit)
	n, err := io.ReadAtLeast(conn, buf, 1)
	if n == 0 && err != nil {
		return LabelUnknown
	}
	return ClassifyBanner(buf[:n])
}

// ClassifyBanner turns raw banner bytes into a service label. Invalid UTF-8
// and non-printable characters are dropped and runs of whitespace collapsed
// to one space before matching, so labels are always single-line text.
func ClassifyBanner(raw []byte) string {
	banner := printable(validUTF8(raw))
	if banner == "" {
		return LabelUnknown
	}

	switch {
	case strings.Contains(banner, "SSH"):
		return fmt.Sprintf("SSH (%s)", firstRunes(banner, bannerLabelRunes))
	case strings.Contains(banner, "HTTP"):
		return fmt.Sprintf("HTTP (%s)", firstRunes(banner, bannerLabelRunes))
	case strings.Contains(banner, "FTP"):
		return fmt.Sprintf("FTP (%s)", firstRunes(banner, bannerLabelRunes))
	default:
		return fmt.Sprintf("Unknown (%s)", firstRunes(banner, otherLabelRunes))
	}
}

func validUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "")
}

func printable(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case !unicode.IsPrint(r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
