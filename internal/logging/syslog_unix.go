//go:build !windows && !plan9

package logging

import (
	"io"
	"log/syslog"

	"github.com/rs/zerolog"
)

type syslogWriter interface {
	zerolog.SyslogWriter
	io.Closer
}

func openSyslog() (syslogWriter, error) {
	return syslog.New(syslog.LOG_INFO|syslog.LOG_USER, AppName)
}
