// Command sheetpipe serves the tabular-upload, query, and export API.
//
// It loads database registrations and saved queries from JSON files,
// ingests uploaded spreadsheets and delimited text into registered
// databases, runs (optionally templated) SQL queries, and exports results
// as xlsx downloads or into a remote spreadsheet when a service client is
// wired in.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/sheetpipe/sheetpipe/internal/registry"
	"github.com/sheetpipe/sheetpipe/internal/server"
)

func main() {
	var (
		addr          string
		uploadDir     string
		downloadDir   string
		databasesPath string
		queriesPath   string
		batchSize     int
	)

	flag.StringVar(&addr, "addr", ":7777", "listen address")
	flag.StringVar(&uploadDir, "upload-dir", "uploads", "staging directory for uploaded files")
	flag.StringVar(&downloadDir, "download-dir", "downloads", "directory for generated downloads")
	flag.StringVar(&databasesPath, "databases", "databases.json", "database registration store path")
	flag.StringVar(&queriesPath, "queries", "saved_queries.json", "saved query store path")
	flag.IntVar(&batchSize, "batch-size", 0, "spool batch size (0 uses the default)")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	databases, err := registry.OpenFileStore(databasesPath)
	if err != nil {
		fatalf(logger, "open database store: %v", err)
	}
	queries, err := registry.OpenFileQueryStore(queriesPath)
	if err != nil {
		fatalf(logger, "open query store: %v", err)
	}

	srv, err := server.New(server.Server{
		Databases:   databases,
		Queries:     queries,
		UploadDir:   uploadDir,
		DownloadDir: downloadDir,
		BatchSize:   batchSize,
		Logger:      logger,
	})
	if err != nil {
		fatalf(logger, "init server: %v", err)
	}

	logger.Printf("listening addr=%s databases=%s", addr, databasesPath)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		fatalf(logger, "serve: %v", err)
	}
}

func fatalf(logger *log.Logger, format string, v ...any) {
	logger.Printf(format, v...)
	os.Exit(1)
}
