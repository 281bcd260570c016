// Webserver that exposes the tiles of a TIFF file over HTTP, reading
// from local disk or straight from S3-compatible object storage with
// ranged requests. Prometheus metrics are served on /metrics.
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arnevogt/tiffio/reader"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tile"
)

var (
	tileRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiffserve_tile_requests_total",
			Help: "Number of tile requests served, by outcome.",
		},
		[]string{"status"})
	tileLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tiffserve_tile_seconds",
			Help:    "Wall-clock time for decoding and serving one tile.",
			Buckets: prometheus.DefBuckets,
		})
)

func main() {
	port := flag.Int("port", 0, "port for serving HTTP requests")
	path := flag.String("path", "", "path to a local TIFF file")
	bucket := flag.String("bucket", "", "S3 bucket holding the TIFF object")
	key := flag.String("key", "", "S3 object key")
	storagekey := flag.String("storage-key", "", "path to JSON file with S3 credentials; env S3_ENDPOINT/S3_KEY/S3_SECRET otherwise")
	flag.Parse()

	if *port == 0 {
		*port, _ = strconv.Atoi(os.Getenv("PORT"))
	}
	if *port == 0 {
		*port = 8080
	}

	prometheus.MustRegister(tileRequests, tileLatency)

	src, err := openSource(*path, *bucket, *key, *storagekey)
	if err != nil {
		log.Fatal(err)
	}
	f, err := reader.Open(src)
	if err != nil {
		log.Fatal(err)
	}

	server := &tileServer{file: f}
	http.HandleFunc("/info", server.handleInfo)
	http.HandleFunc("/tile/", server.handleTile)
	http.Handle("/metrics", promhttp.Handler())
	log.Printf("Listening for HTTP requests on port %d", *port)
	log.Fatal(http.ListenAndServe(":"+strconv.Itoa(*port), nil))
}

func openSource(path, bucket, key, storagekey string) (storage.Reader, error) {
	if path != "" {
		return storage.OpenMmap(path)
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("need either -path or -bucket and -key")
	}
	client, err := storage.NewS3Client(storagekey)
	if err != nil {
		return nil, err
	}
	return storage.NewS3Object(context.Background(), client, bucket, key)
}

type tileServer struct {
	file *reader.File
}

type pageInfo struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Depth  uint32 `json:"depth"`
	Bits   uint16 `json:"bitsPerSample"`
	Bands  uint16 `json:"samplesPerPixel"`
	Chunks int    `json:"chunks"`
	Tiled  bool   `json:"tiled"`
}

func (s *tileServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	infos := make([]pageInfo, s.file.NumPages())
	for i := range infos {
		p := s.file.Page(i)
		infos[i] = pageInfo{
			Width: p.Shape.Width, Height: p.Shape.Height, Depth: p.Shape.Depth,
			Bits: p.Shape.BitsPerSample, Bands: p.Shape.SamplesPerPixel,
			Chunks: p.Grid.Count(), Tiled: p.Grid.Tiled,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(infos)
}

// handleTile serves the decoded samples of one chunk:
// /tile/<page>/<index> returns raw little-endian samples.
func (s *tileServer) handleTile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/tile/"), "/")
	if len(parts) != 2 {
		tileRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "want /tile/<page>/<index>", http.StatusBadRequest)
		return
	}
	pageIndex, err1 := strconv.Atoi(parts[0])
	chunkIndex, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || pageIndex < 0 || pageIndex >= s.file.NumPages() {
		tileRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "bad page or tile index", http.StatusBadRequest)
		return
	}
	p := s.file.Page(pageIndex)
	if chunkIndex < 0 || chunkIndex >= p.Grid.Count() {
		tileRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "bad tile index", http.StatusBadRequest)
		return
	}

	c := p.Chunk(chunkIndex)
	region := tile.Region{
		C0: 0, C1: uint32(p.Shape.SamplesPerPixel),
		Z0: c.Z, Z1: c.Z + c.D,
		Y0: c.Y, Y1: c.Y + c.H,
		X0: c.X, X1: c.X + c.W,
	}
	buf := make([]byte, region.BufferSize(p.Shape))
	if err := p.ReadRegion(buf, region, tile.DHWC, binary.LittleEndian); err != nil {
		tileRequests.WithLabelValues("error").Inc()
		log.Printf("tile %d/%d: %v", pageIndex, chunkIndex, err)
		http.Error(w, "tile decode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Tile-Width", strconv.Itoa(int(c.W)))
	w.Header().Set("X-Tile-Height", strconv.Itoa(int(c.H)))
	w.Write(buf)
	tileRequests.WithLabelValues("ok").Inc()
	tileLatency.Observe(time.Since(start).Seconds())
}
