// Command milliseriesdb-server runs the HTTP surface over the
// embedded storage engine: create/append/query/export/restore per
// series, all persisted under one base directory.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/whiter4bbit/milliseriesdb/httpapi"
	"github.com/whiter4bbit/milliseriesdb/storage"
)

var (
	basePath   = kingpin.Flag("base-path", "Directory holding the series/ tree").Default("./data").String()
	listenAddr = kingpin.Flag("listen", "HTTP listen address").Default(":8228").String()
)

func main() {
	kingpin.Version(versionString())
	kingpin.Parse()

	fs, err := storage.NewFileSystem(*basePath)
	if err != nil {
		log.Fatalf("open base path %q: %v", *basePath, err)
	}

	table := storage.NewSeriesTable(fs)
	if err := reopenExistingSeries(fs, table); err != nil {
		log.Fatalf("reopen existing series: %v", err)
	}

	server := httpapi.NewServer(table)

	log.Printf("milliseriesdb listening on %s, base_path=%s", *listenAddr, *basePath)
	if err := http.ListenAndServe(*listenAddr, server.Handler()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// reopenExistingSeries re-registers every series directory already on
// disk so a restart doesn't require the host to re-issue a create for
// each one.
func reopenExistingSeries(fs *storage.FileSystem, table *storage.SeriesTable) error {
	names, err := fs.ListSeriesNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := table.Create(name); err != nil {
			return fmt.Errorf("reopen series %q: %w", name, err)
		}
	}
	return nil
}

func versionString() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("milliseriesdb-server (%s)", host)
}
