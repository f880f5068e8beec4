//go:build windows || plan9

package logging

import (
	"fmt"
	"io"
	"runtime"

	"github.com/rs/zerolog"
)

type syslogWriter interface {
	zerolog.SyslogWriter
	io.Closer
}

func openSyslog() (syslogWriter, error) {
	return nil, fmt.Errorf("syslog is not available on %s", runtime.GOOS)
}
