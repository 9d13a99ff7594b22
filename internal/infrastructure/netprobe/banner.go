package netprobe

import (
	"bytes"
	"regexp"
	"strings"
)

// serviceBanner is what could be read off a service greeting.
type serviceBanner struct {
	Service   string
	Product   string
	Version   string
	ExtraInfo string
}

var (
	sshBanner      = regexp.MustCompile(`^SSH-(\d+\.\d+)-([^\s_-]+)(?:[_-](\S+))?(?:\s+(.*))?$`)
	httpServerLine = regexp.MustCompile(`(?im)^server:\s*(.+?)\s*$`)
	productVersion = regexp.MustCompile(`^([A-Za-z][\w.-]*?)(?:/(\S+))?(?:\s+(.*))?$`)
)

// greetingProducts maps well-known daemons to the service they speak.
var greetingProducts = []struct {
	service string
	pattern *regexp.Regexp
}{
	{"ftp", regexp.MustCompile(`(?i)\b(ProFTPD|vsFTPd|Pure-FTPd|FileZilla Server|Microsoft FTP Service)(?:[ /]v?(\d[\w.-]*))?`)},
	{"smtp", regexp.MustCompile(`(?i)\b(Postfix|Exim|Sendmail|Microsoft ESMTP MAIL Service|OpenSMTPD)(?:[ /](\d[\w./-]*))?`)},
	{"imap", regexp.MustCompile(`(?i)^\* OK.*?\b(Dovecot|Courier-IMAP|Cyrus IMAP)(?:[ /]v?(\d[\w.]*))?`)},
	{"pop3", regexp.MustCompile(`(?i)^\+OK.*?\b(Dovecot|Courier|Cyrus)(?:[ /]v?(\d[\w.]*))?`)},
}

// parseBanner extracts service details from the first bytes a service sent.
// fallback is the service name assumed from the port number.
func parseBanner(raw []byte, fallback string) serviceBanner {
	info := serviceBanner{Service: fallback}
	if len(raw) == 0 {
		return info
	}

	if mysql, ok := parseMySQLGreeting(raw); ok {
		return mysql
	}

	text := strings.TrimSpace(string(bytes.ToValidUTF8(raw, nil)))
	firstLine, _, _ := strings.Cut(text, "\n")
	firstLine = strings.TrimSpace(firstLine)

	if m := sshBanner.FindStringSubmatch(firstLine); m != nil {
		info.Service = "ssh"
		info.Product = m[2]
		info.Version = m[3]
		info.ExtraInfo = strings.TrimSpace("protocol " + m[1] + " " + m[4])
		return info
	}

	if m := httpServerLine.FindStringSubmatch(text); m != nil && strings.HasPrefix(text, "HTTP/") {
		info.Service = "http"
		if pv := productVersion.FindStringSubmatch(m[1]); pv != nil {
			info.Product = pv[1]
			info.Version = pv[2]
			info.ExtraInfo = strings.Trim(pv[3], "() ")
		} else {
			info.Product = m[1]
		}
		return info
	}

	for _, gp := range greetingProducts {
		if m := gp.pattern.FindStringSubmatch(firstLine); m != nil {
			info.Service = gp.service
			info.Product = m[1]
			info.Version = m[2]
			return info
		}
	}

	switch {
	case strings.HasPrefix(firstLine, "220") && strings.Contains(strings.ToUpper(firstLine), "SMTP"):
		info.Service = "smtp"
	case strings.HasPrefix(firstLine, "220") && strings.Contains(strings.ToUpper(firstLine), "FTP"):
		info.Service = "ftp"
	case strings.HasPrefix(firstLine, "+OK"):
		info.Service = "pop3"
	case strings.HasPrefix(firstLine, "* OK"):
		info.Service = "imap"
	}
	if strings.Contains(strings.ToUpper(firstLine), "STARTTLS") {
		info.ExtraInfo = "STARTTLS"
	}
	return info
}

// parseMySQLGreeting reads the server version out of a protocol 10 handshake packet.
func parseMySQLGreeting(raw []byte) (serviceBanner, bool) {
	// 3-byte length, 1-byte sequence, protocol version 0x0a, NUL-terminated version.
	if len(raw) < 6 || raw[3] != 0 || raw[4] != 0x0a {
		return serviceBanner{}, false
	}
	end := bytes.IndexByte(raw[5:], 0)
	if end <= 0 {
		return serviceBanner{}, false
	}
	version := string(raw[5 : 5+end])
	if !strings.ContainsAny(version[:1], "0123456789") {
		return serviceBanner{}, false
	}

	info := serviceBanner{Service: "mysql", Product: "MySQL", Version: version}
	if strings.Contains(strings.ToLower(version), "mariadb") {
		info.Product = "MariaDB"
		info.Version = strings.TrimPrefix(version, "5.5.5-")
	}
	return info, true
}
