// Package main implements the fetch command line described in section 6
// of the design: a single process standing in for one rank of a larger
// job, fetching the newest eligible checkpoint from the shared prefix
// directory into its local cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/parallaxfs/ckptfetch/awsclient"
	"github.com/parallaxfs/ckptfetch/cache"
	"github.com/parallaxfs/ckptfetch/candidate"
	"github.com/parallaxfs/ckptfetch/config"
	"github.com/parallaxfs/ckptfetch/fetcher"
	"github.com/parallaxfs/ckptfetch/filemap"
	"github.com/parallaxfs/ckptfetch/flushflags"
	"github.com/parallaxfs/ckptfetch/index"
	"github.com/parallaxfs/ckptfetch/logevent"
	"github.com/parallaxfs/ckptfetch/metrics"
	"github.com/parallaxfs/ckptfetch/orchestrator"
	"github.com/parallaxfs/ckptfetch/pfs"
	"github.com/parallaxfs/ckptfetch/summary"
	"github.com/parallaxfs/ckptfetch/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses flags, wires up collaborators, and drives one FetchSync
// call per rank the -world flag asks for, all simulated within this one
// process via transport.Local.
func run() error {
	fs := flag.NewFlagSet("ckptfetch", flag.ExitOnError)

	prefix := fs.String("prefix", "", "root of the shared prefix directory (local path or s3://bucket/prefix)")
	cacheDir := fs.String("cache-dir", "", "local directory each rank stages fetched files into")
	mapFile := fs.String("map-file", "filemap", "filemap file name within each rank's cache directory")
	world := fs.Int("world", 1, "number of ranks to simulate")
	fetchWidth := fs.Int("fetch-width", 0, "maximum ranks fetching concurrently (0 = world-1)")
	fileBufSize := fs.Int("file-buf-size", 0, "bytes per copy/reconstruct buffer (0 = 1MiB default)")
	crcOnFlush := fs.Bool("crc-on-flush", true, "verify CRC32 on every fetched file")
	logEnable := fs.Bool("log-enable", true, "emit event/transfer log lines to stdout")
	region := fs.String("region", "", "AWS region (defaults to AWS_REGION env) when prefix or cache-dir is s3://")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if *prefix == "" {
		return fmt.Errorf("-prefix is required")
	}
	if *cacheDir == "" {
		return fmt.Errorf("-cache-dir is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var s3Client awsclient.S3Client
	if config.IsS3URI(*prefix) || config.IsS3URI(*cacheDir) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*region))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client = s3.NewFromConfig(awsCfg)
	}

	prefixDir, err := openDir(*prefix, s3Client)
	if err != nil {
		return fmt.Errorf("open prefix: %w", err)
	}

	t := transport.NewLocal(*world, 64)
	log := logevent.New(os.Stdout, *logEnable)
	m := metrics.New()
	idxStore := index.NewPFSStore(prefixDir)
	summaryRdr := summary.NewPFSReader(prefixDir)

	fmt.Printf("Starting fetch from %s into %d rank(s) under %s\n", *prefix, *world, *cacheDir)

	results := make([]orchestrator.Observables, *world)
	errs := make([]error, *world)
	done := make(chan int, *world)

	for rank := 0; rank < *world; rank++ {
		rank := rank
		go func() {
			cacheRoot, cerr := openDir(pfs.Join(*cacheDir, fmt.Sprintf("rank-%d", rank)), s3Client)
			if cerr != nil {
				errs[rank] = fmt.Errorf("open cache dir for rank %d: %w", rank, cerr)
				done <- rank
				return
			}

			fmStore := filemap.NewPFSStore(cacheRoot)
			cacheMgr := cache.New(cacheRoot)
			flags := flushflags.New()

			paramsFor := func(r int, datasetID int, cacheDir string) fetcher.Params {
				return fetcher.Params{
					Src:         prefixDir,
					Dst:         cacheRoot,
					DstDir:      cacheDir,
					Filemap:     fmStore,
					FilemapKey:  filemap.Key{DatasetID: datasetID, Rank: r},
					FilemapPath: *mapFile,
					Log:         log,
					Metrics:     m,
					BufSize:     *fileBufSize,
					WantCRC:     *crcOnFlush,
				}
			}

			p := candidate.Params{
				Prefix:     "",
				Dir:        prefixDir,
				IndexStore: idxStore,
				SummaryRdr: summaryRdr,
				Cache:      cacheMgr,
				FetchWidth: *fetchWidth,
				ParamsFor:  paramsFor,
				Metrics:    m,
			}

			obs, err := orchestrator.FetchSync(ctx, t.Rank(rank), p, log, flags)
			results[rank] = obs
			errs[rank] = err
			done <- rank
		}()
	}

	for i := 0; i < *world; i++ {
		<-done
	}

	for rank, err := range errs {
		if err != nil {
			return fmt.Errorf("rank %d: %w", rank, err)
		}
	}

	fmt.Println(m.GenerateReport().String())
	fmt.Printf("Fetch completed: dataset %d checkpoint %d at %s\n", results[0].DatasetID, results[0].CheckpointID, results[0].Dir)
	return nil
}

func openDir(uri string, client awsclient.S3Client) (pfs.Dir, error) {
	if config.IsS3URI(uri) {
		if client == nil {
			return nil, fmt.Errorf("s3 uri %s given but no AWS client configured", uri)
		}
		return pfs.NewS3(client, uri)
	}
	return pfs.NewLocal(uri), nil
}
