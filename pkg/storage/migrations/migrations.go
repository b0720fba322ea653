package migrations

import (
	"embed"
	"net/http"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	_ "github.com/lib/pq"
)

// This package embeds the migration files into the binary and
// registers them as the "embed://" source for golang-migrate, so
// deployments don't need to ship a migrations folder alongside the
// binary. Import it for its side effect:
//
//	import ( _ "github.com/wafwatch/wafwatch/pkg/storage/migrations" )

//go:embed *.sql
var static embed.FS

func init() {
	source.Register("embed", &driver{})
}

type driver struct {
	httpfs.PartialDriver
}

func (d *driver) Open(rawURL string) (source.Driver, error) {
	err := d.PartialDriver.Init(http.FS(static), ".")
	if err != nil {
		return nil, err
	}
	return d, nil
}
