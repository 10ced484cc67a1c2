package dbhandle

import (
	"net"

	"github.com/go-sql-driver/mysql"
)

// Target is the display side of a DSN: never the password.
type Target struct {
	Host string
	Name string
	User string
}

// Describe extracts host, database name and user from dsn. An unparsable
// dsn yields the zero Target, which renders as unknown.
func Describe(dsn string) Target {
	if dsn == "" {
		return Target{}
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return Target{}
	}
	host := mc.Addr
	if mc.Net == "tcp" || mc.Net == "" {
		if h, _, err := net.SplitHostPort(mc.Addr); err == nil {
			host = h
		}
	}
	return Target{Host: host, Name: mc.DBName, User: mc.User}
}
