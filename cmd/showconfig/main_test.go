package showconfig

import (
	"testing"

	"github.com/netrixframework/timeoutd/config"
)

func TestMaskDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"postgres://timeoutd:s3cret@db:5432/timeoutd?sslmode=disable", "postgres://timeoutd:xxxxx@db:5432/timeoutd?sslmode=disable"},
		{"postgres://timeoutd@db/timeoutd", "postgres://timeoutd@db/timeoutd"},
		{"host=db user=timeoutd password=s3cret dbname=timeoutd", "host=db user=timeoutd password=xxxxx dbname=timeoutd"},
		{"host=db password='a b\\'c' dbname=x", "host=db password=xxxxx dbname=x"},
		{"", ""},
	}
	for _, c := range cases {
		if got := maskDSN(c.dsn); got != c.want {
			t.Errorf("maskDSN(%q): got %q, want %q", c.dsn, got, c.want)
		}
	}
}

func TestRedact(t *testing.T) {
	conf := &config.Config{
		Redis:    config.RedisConfig{Addr: "localhost:6379", Password: "pw"},
		Postgres: config.PostgresConfig{DSN: "postgres://u:pw@db/x"},
	}
	redact(conf)
	if conf.Redis.Password != mask || conf.Postgres.DSN != "postgres://u:xxxxx@db/x" {
		t.Errorf("redact: got %+v %+v", conf.Redis, conf.Postgres)
	}
}
