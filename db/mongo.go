package db

import (
	"context"
	"fmt"
	"time"

	"audiotrace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoStore is the primary Store backend, matching the teacher's
// original document-oriented persistence: one "songs" collection and
// one "fingerprints" collection, each hash row stored as its own
// document (hash, songID, offsetMs).
type mongoStore struct {
	client      *mongo.Client
	songs       *mongo.Collection
	fingerprints *mongo.Collection
}

type mongoSong struct {
	ID            uint32 `bson:"_id"`
	Key           string `bson:"key"`
	Title         string `bson:"title"`
	Artist        string `bson:"artist"`
	FileSHA1      string `bson:"fileSha1"`
	TotalHashes   int    `bson:"totalHashes"`
	DurationMs    int    `bson:"durationMs"`
	Fingerprinted bool   `bson:"fingerprinted"`
	SampleRate    int    `bson:"sampleRate"`
	WindowSize    int    `bson:"windowSize"`
	HopSize       int    `bson:"hopSize"`
	DSPRatio      int    `bson:"dspRatio"`
}

type mongoHash struct {
	Hash     string `bson:"hash"`
	SongID   uint32 `bson:"songId"`
	OffsetMs uint32 `bson:"offsetMs"`
}

func newMongoStore(uri, dbName string) (*mongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping failed: %v", err)
	}

	db := client.Database(dbName)
	store := &mongoStore{
		client:       client,
		songs:        db.Collection("songs"),
		fingerprints: db.Collection("fingerprints"),
	}

	_, _ = store.fingerprints.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "hash", Value: 1}, {Key: "songId", Value: 1}},
	})
	_, _ = store.songs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})

	return store, nil
}

func nextSongID(ctx context.Context, songs *mongo.Collection) (uint32, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	var top mongoSong
	err := songs.FindOne(ctx, bson.M{}, opts).Decode(&top)
	if err == mongo.ErrNoDocuments {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return top.ID + 1, nil
}

func (s *mongoStore) InsertSong(ctx context.Context, song models.Song) (uint32, error) {
	id, err := nextSongID(ctx, s.songs)
	if err != nil {
		return 0, fmt.Errorf("store unavailable: %v", err)
	}

	doc := mongoSong{
		ID: id, Key: song.Key, Title: song.Title, Artist: song.Artist,
		FileSHA1: song.FileSHA1, DurationMs: song.DurationMs,
		SampleRate: song.SampleRate, WindowSize: song.WindowSize,
		HopSize: song.HopSize, DSPRatio: song.DSPRatio,
	}
	if _, err := s.songs.InsertOne(ctx, doc); err != nil {
		return 0, fmt.Errorf("store unavailable: %v", err)
	}
	return id, nil
}

func (s *mongoStore) SetSongFraming(ctx context.Context, songID uint32, sampleRate, windowSize, hopSize, dspRatio int) error {
	_, err := s.songs.UpdateOne(ctx, bson.M{"_id": songID}, bson.M{
		"$set": bson.M{"sampleRate": sampleRate, "windowSize": windowSize, "hopSize": hopSize, "dspRatio": dspRatio},
	})
	return err
}

func (s *mongoStore) SetSongFingerprinted(ctx context.Context, songID uint32, totalHashes int) error {
	_, err := s.songs.UpdateOne(ctx, bson.M{"_id": songID}, bson.M{
		"$set": bson.M{"fingerprinted": true, "totalHashes": totalHashes},
	})
	return err
}

func (s *mongoStore) InsertHashes(ctx context.Context, songID uint32, fingerprints map[string]models.Couple) error {
	if len(fingerprints) == 0 {
		return nil
	}
	for hash := range fingerprints {
		if err := validateHash(hash); err != nil {
			return err
		}
	}

	batchSize := insertBatchSize()
	docs := make([]interface{}, 0, batchSize)

	flush := func() error {
		if len(docs) == 0 {
			return nil
		}
		_, err := s.fingerprints.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		docs = docs[:0]
		return err
	}

	for hash, couple := range fingerprints {
		docs = append(docs, mongoHash{Hash: hash, SongID: songID, OffsetMs: couple.AnchorTimeMs})
		if len(docs) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (s *mongoStore) DeleteSongs(ctx context.Context, ids []uint32) error {
	if len(ids) == 0 {
		return nil
	}
	idVals := make([]interface{}, len(ids))
	for i, id := range ids {
		idVals[i] = id
	}

	if _, err := s.fingerprints.DeleteMany(ctx, bson.M{"songId": bson.M{"$in": idVals}}); err != nil {
		return err
	}
	_, err := s.songs.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": idVals}})
	return err
}

// Lookup issues one $in query per LOOKUP_BATCH_SIZE-sized slice of
// hashes and concatenates the results; ordering across batches (and
// within a batch) is undefined, matching the spec's batching policy.
func (s *mongoStore) Lookup(ctx context.Context, hashes []string, songFilter []uint32) ([]models.HashRow, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	if err := validateHashes(hashes); err != nil {
		return nil, err
	}

	batchSize := lookupBatchSize()
	var rows []models.HashRow

	for start := 0; start < len(hashes); start += batchSize {
		end := start + batchSize
		if end > len(hashes) {
			end = len(hashes)
		}

		filter := bson.M{"hash": bson.M{"$in": hashes[start:end]}}
		if len(songFilter) > 0 {
			filter["songId"] = bson.M{"$in": songFilter}
		}

		cur, err := s.fingerprints.Find(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("store unavailable during lookup: %v", err)
		}

		for cur.Next(ctx) {
			var h mongoHash
			if err := cur.Decode(&h); err != nil {
				cur.Close(ctx)
				return nil, err
			}
			rows = append(rows, models.HashRow{Hash: h.Hash, SongID: h.SongID, OffsetMs: h.OffsetMs})
		}
		err = cur.Err()
		cur.Close(ctx)
		if err != nil {
			return nil, err
		}
	}

	return rows, nil
}

func (s *mongoStore) toModel(m mongoSong) models.Song {
	return models.Song{
		ID: m.ID, Key: m.Key, Title: m.Title, Artist: m.Artist,
		FileSHA1: m.FileSHA1, TotalHashes: m.TotalHashes, DurationMs: m.DurationMs,
		Fingerprinted: m.Fingerprinted, SampleRate: m.SampleRate,
		WindowSize: m.WindowSize, HopSize: m.HopSize, DSPRatio: m.DSPRatio,
	}
}

func (s *mongoStore) GetSong(ctx context.Context, id uint32) (models.Song, bool, error) {
	var m mongoSong
	err := s.songs.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Song{}, false, nil
	}
	if err != nil {
		return models.Song{}, false, err
	}
	return s.toModel(m), true, nil
}

func (s *mongoStore) GetSongByKey(ctx context.Context, key string) (models.Song, bool, error) {
	var m mongoSong
	err := s.songs.FindOne(ctx, bson.M{"key": key}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Song{}, false, nil
	}
	if err != nil {
		return models.Song{}, false, err
	}
	return s.toModel(m), true, nil
}

func (s *mongoStore) ListSongs(ctx context.Context) ([]models.Song, error) {
	cur, err := s.songs.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var songs []models.Song
	for cur.Next(ctx) {
		var m mongoSong
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		songs = append(songs, s.toModel(m))
	}
	return songs, cur.Err()
}

func (s *mongoStore) CountSongs(ctx context.Context) (int, error) {
	n, err := s.songs.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (s *mongoStore) CountHashes(ctx context.Context) (int, error) {
	n, err := s.fingerprints.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (s *mongoStore) DeleteCollection(ctx context.Context, name string) error {
	return s.client.Database(s.songs.Database().Name()).Collection(name).Drop(ctx)
}

func (s *mongoStore) BeforeFork(ctx context.Context) error { return nil }
func (s *mongoStore) AfterFork(ctx context.Context) error  { return nil }

func (s *mongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
