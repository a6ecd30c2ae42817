package database

import (
	"fmt"
	"net/url"
	"strings"
)

// MaskDSN 打日志前把密码换成 ****
func MaskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at <= 0 {
		return dsn
	}
	head := dsn[:at]
	if i := strings.Index(head, "://"); i >= 0 {
		head = head[i+3:]
	}
	colon := strings.Index(head, ":")
	if colon < 0 {
		return dsn
	}
	start := at - len(head) + colon + 1
	return dsn[:start] + "****" + dsn[at:]
}

// sqliteDSN 并发写时等锁而不是立刻 SQLITE_BUSY
func sqliteDSN(dsn string) string {
	if dsn == "" || strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_busy_timeout=5000"
}

// normalizeMySQLDSN 把 mysql:// 或 jdbc:mysql:// URL 改写成 go-sql-driver 格式；
// 账号优先级 override > query > URL，常见 JDBC 参数换成驱动的等价项
func normalizeMySQLDSN(input, user, pass string) string {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return in
	}
	u, err := url.Parse(in)
	if err != nil {
		return in
	}

	q := u.Query()
	var urlUser, urlPass string
	if u.User != nil {
		urlUser = u.User.Username()
		urlPass, _ = u.User.Password()
	}
	user = firstNonEmpty(user, q.Get("user"), urlUser)
	pass = firstNonEmpty(pass, q.Get("password"), urlPass)

	if enc := q.Get("characterEncoding"); enc != "" && q.Get("charset") == "" {
		q.Set("charset", enc)
	}
	if tz := q.Get("serverTimezone"); tz != "" {
		q.Set("loc", tz)
	}
	if ssl := strings.ToLower(q.Get("useSSL")); ssl != "" {
		q.Set("tls", mysqlTLS(ssl))
	}
	for _, k := range []string{"user", "password", "characterEncoding", "serverTimezone", "useSSL", "useUnicode", "zeroDateTimeBehavior"} {
		q.Del(k)
	}
	for k, v := range map[string]string{"parseTime": "true", "charset": "utf8mb4"} {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}

	cred := user
	if pass != "" {
		cred += ":" + pass
	}
	if cred != "" {
		cred += "@"
	}
	dsn := fmt.Sprintf("%stcp(%s)/%s", cred, u.Host, strings.TrimPrefix(u.Path, "/"))
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn
}

func mysqlTLS(v string) string {
	switch v {
	case "true", "1":
		return "true"
	case "skip-verify", "preferred":
		return v
	}
	return "false"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
