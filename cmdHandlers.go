package main

import (
	"audiotrace/chunk"
	"audiotrace/db"
	"audiotrace/wav"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
)

const (
	SONGS_DIR = "songs"
)

// recognizeFile decodes filePath to PCM, opens the store, and runs it
// through the chunked recognition pipeline with the given chunk
// sizing. Both find (one whole-file chunk) and recognize (many
// overlapping chunks, producing a timeline) share this.
func recognizeFile(filePath string, chunkCfg chunk.ChunkConfig) (chunk.Timeline, error) {
	wavPath, err := wav.ConvertToWAV(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to wav: %v", err)
	}
	defer os.Remove(wavPath)

	info, err := wav.ReadWavInfo(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav: %v", err)
	}

	dbClient, err := db.NewDBClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create DB client: %v", err)
	}
	defer dbClient.Close()

	opts := chunk.RecognizeOptions{
		Chunk:  chunkCfg,
		Align:  chunk.DefaultAlignConfig(),
		Reduce: chunk.DefaultReduceConfig(),
	}

	return chunk.Recognize(context.Background(), info.LeftChannelSamples, info.SampleRate, dbClient.Store, fpConfig, opts)
}

func find(filePath string) {
	log.Printf("[find] recognizing %s as a single whole-file chunk...", filePath)
	start := time.Now()

	// one chunk spanning the whole file approximates the teacher's
	// original single-shot match while still going through the
	// coalesced chunk pipeline.
	timeline, err := recognizeFile(filePath, chunk.ChunkConfig{ChunkDurationSec: 0, OverlapSec: 0, Workers: 1})
	if err != nil {
		fmt.Println("error recognizing file:", err)
		return
	}

	if len(timeline) == 0 {
		fmt.Println("\nno match found.")
		fmt.Printf("\nsearch took: %s\n", time.Since(start))
		return
	}

	best := timeline[0]
	for _, d := range timeline {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	bold := color.New(color.Bold)
	fmt.Println("matches:")
	for _, d := range timeline {
		fmt.Printf("\t- %s by %s, confidence: %.2f, hashes matched: %d\n",
			d.SongTitle, d.SongArtist, d.Confidence, d.HashesMatched)
	}

	fmt.Printf("\nsearch took: %s\n", time.Since(start))
	bold.Printf("\nfinal prediction: %s by %s, confidence: %.2f\n", best.SongTitle, best.SongArtist, best.Confidence)
}

// recognize runs the full chunked recognition pipeline and prints the
// resulting timeline of detections, each tagged with its position in
// the query recording.
func recognize(filePath string) {
	log.Printf("[recognize] running chunked recognition on %s...", filePath)
	start := time.Now()

	timeline, err := recognizeFile(filePath, chunk.DefaultChunkConfig(runtime.NumCPU()))
	if err != nil {
		fmt.Println("error recognizing file:", err)
		return
	}

	if len(timeline) == 0 {
		fmt.Println("\nno detections.")
		return
	}

	fmt.Println("timeline:")
	for _, d := range timeline {
		fmt.Printf("\t%7.1fs  %-30s %-20s confidence=%.2f hashes=%d\n",
			d.OffsetSec, d.SongTitle, d.SongArtist, d.Confidence, d.HashesMatched)
	}

	fmt.Printf("\nrecognition took: %s\n", time.Since(start))
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/index", handleIndex)
	mux.HandleFunc("/api/match", handleMatch)
	mux.HandleFunc("/api/recognize", handleMatch) // same chunked pipeline, exposed under its own name
	mux.HandleFunc("/api/stats", handleStats)
	mux.HandleFunc("/api/entries", handleEntries)

	mux.Handle("/", http.FileServer(http.Dir("static")))

	handler := requestLogger(corsMiddleware(mux))

	log.Printf("starting server on port %s (%s)\n", port, protocol)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		// skip noisy static file / stats polling logs
		if strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/api/stats" {
			log.Printf("[http] %s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func erase(songsDir string, dbOnly bool, all bool) {
	dbClient, err := db.NewDBClient()
	if err != nil {
		fmt.Printf("error creating DB client: %v\n", err)
		return
	}

	if err := dbClient.DeleteCollection("fingerprints"); err != nil {
		fmt.Printf("error deleting fingerprints: %v\n", err)
	}

	if err := dbClient.DeleteCollection("songs"); err != nil {
		fmt.Printf("error deleting songs: %v\n", err)
	}

	fmt.Println("database cleared")

	if !all {
		fmt.Println("erase complete")
		return
	}

	err = filepath.Walk(songsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".wav" || ext == ".m4a" || ext == ".mp3" || ext == ".flac" || ext == ".ogg" {
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("error cleaning files in %s: %v\n", songsDir, err)
	}
	fmt.Println("audio files cleared")
	fmt.Println("erase complete")
}

func save(path string, force bool) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	if !fileInfo.IsDir() {
		if err := saveEntry(path, force); err != nil {
			fmt.Printf("error saving (%v): %v\n", path, err)
		}
		return
	}

	var filePaths []string
	filepath.Walk(path, func(fp string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			filePaths = append(filePaths, fp)
		}
		return nil
	})

	processFilesConcurrently(filePaths, force)
}

func processFilesConcurrently(filePaths []string, force bool) {
	maxWorkers := runtime.NumCPU() / 2
	numFiles := len(filePaths)

	if numFiles == 0 {
		return
	}
	if numFiles < maxWorkers {
		maxWorkers = numFiles
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	jobs := make(chan string, numFiles)
	results := make(chan error, numFiles)

	for w := 0; w < maxWorkers; w++ {
		go func() {
			for fp := range jobs {
				results <- saveEntry(fp, force)
			}
		}()
	}

	for _, fp := range filePaths {
		jobs <- fp
	}
	close(jobs)

	successCount, errorCount := 0, 0
	for i := 0; i < numFiles; i++ {
		if err := <-results; err != nil {
			fmt.Printf("error: %v\n", err)
			errorCount++
		} else {
			successCount++
		}
	}

	fmt.Printf("\nprocessed %d files: %d successful, %d failed\n", numFiles, successCount, errorCount)
}

func saveEntry(filePath string, force bool) error {
	metadata, err := wav.GetMetadata(filePath)

	title := ""
	author := ""

	if err == nil {
		title = metadata.Format.Tags["title"]
		author = metadata.Format.Tags["artist"]
	}

	if !force && (title == "" || author == "") {
		return fmt.Errorf("'%s' is missing title/artist metadata; use -f to index it anyway", filePath)
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	if author == "" {
		author = "unknown"
	}

	_, fpCount, err := processAndSave(filePath, title, author)
	if err != nil {
		return fmt.Errorf("failed to process '%s': %v", filePath, err)
	}

	fmt.Printf("indexed '%s' by '%s' (%d fingerprints)\n", title, author, fpCount)
	return nil
}
