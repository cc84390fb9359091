// Package database provides MongoDB database connection and data management.
// It includes a DataManager with caching capabilities and the repositories
// used by the code pipeline.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotConnected is returned while the client is offline
var ErrNotConnected = errors.New("not connected to database")

// QueuedOperation represents a pending database operation
type QueuedOperation struct {
	DBName         string
	CollectionName string
	Query          bson.M
	Operation      string // "set" or "delete"
	Data           interface{}
}

// Database manages the MongoDB connection
type Database struct {
	client          *mongo.Client
	db              *mongo.Database
	url             string
	dbName          string
	isConnected     bool
	writeQueue      []QueuedOperation
	reconnectTicker *time.Ticker
	stopReconnect   chan struct{}
	mu              sync.RWMutex
	queueMu         sync.Mutex
	collections     map[string]*mongo.Collection
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase(mongoURL, dbName)
		err = database.Connect()
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a new Database instance
func NewDatabase(mongoURL, dbName string) *Database {
	return &Database{
		url:           mongoURL,
		dbName:        dbName,
		writeQueue:    make([]QueuedOperation, 0),
		stopReconnect: make(chan struct{}),
		collections:   make(map[string]*mongo.Collection),
	}
}

// Connect establishes a connection to MongoDB
func (d *Database) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isConnected {
		return nil
	}

	logger.System("Connecting to the database...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(d.url).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Critical("Failed to connect to the database.", "DB")
		d.startReconnect()
		return err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical("Failed to verify the database connection.", "DB")
		_ = client.Disconnect(ctx)
		d.startReconnect()
		return err
	}

	d.client = client
	d.db = client.Database(d.dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.isConnected = true

	logger.Success("Connected to the database.", "DB")

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}

	go d.syncOfflineWrites()

	return nil
}

// startReconnect starts the reconnection loop; d.mu must be held
func (d *Database) startReconnect() {
	d.isConnected = false
	if d.reconnectTicker != nil {
		return
	}
	logger.Warn("No database connection. Switching to offline mode.", "DB")

	ticker := time.NewTicker(15 * time.Second)
	d.reconnectTicker = ticker
	go func() {
		for {
			select {
			case <-ticker.C:
				logger.Info("Reconnecting to the database...", "DB")
				if err := d.Connect(); err == nil {
					return
				}
			case <-d.stopReconnect:
				return
			}
		}
	}()
}

// Disconnect closes the database connection
func (d *Database) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}
	select {
	case <-d.stopReconnect:
	default:
		close(d.stopReconnect)
	}

	if d.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.client.Disconnect(ctx); err != nil {
			return err
		}
		d.isConnected = false
		logger.Warn("Database disconnected", "DB")
	}
	return nil
}

// Connected reports whether the client is usable
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isConnected
}

// GetStatus returns the database connection status
func (d *Database) GetStatus() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.client == nil {
		return "🔴 | Disconnected", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return "🔴 | Disconnected", false
	}
	return "🟢 | Online", true
}

// GetCollection returns a collection of the default database
func (d *Database) GetCollection(name string) *mongo.Collection {
	return d.CollectionIn(d.dbName, name)
}

// CollectionIn returns a collection of any database on the same cluster,
// nil while disconnected
func (d *Database) CollectionIn(dbName, name string) *mongo.Collection {
	key := dbName + "." + name

	d.mu.RLock()
	if col, exists := d.collections[key]; exists {
		d.mu.RUnlock()
		return col
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}

	col := d.client.Database(dbName).Collection(name)
	d.collections[key] = col
	return col
}

// AddToWriteQueue adds an operation to the offline write queue
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.writeQueue = append(d.writeQueue, op)
}

// PendingWrites returns the size of the offline write queue
func (d *Database) PendingWrites() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

// syncOfflineWrites syncs queued operations with the database
func (d *Database) syncOfflineWrites() {
	d.queueMu.Lock()
	if len(d.writeQueue) == 0 {
		d.queueMu.Unlock()
		return
	}

	logger.System(fmt.Sprintf("Syncing %d pending operations with the DB...", len(d.writeQueue)), "DB-Sync")

	operations := make([]QueuedOperation, len(d.writeQueue))
	copy(operations, d.writeQueue)
	d.writeQueue = make([]QueuedOperation, 0)
	d.queueMu.Unlock()

	failedOps := make([]QueuedOperation, 0)

	for _, op := range operations {
		dbName := op.DBName
		if dbName == "" {
			dbName = d.dbName
		}
		col := d.CollectionIn(dbName, op.CollectionName)
		if col == nil {
			failedOps = append(failedOps, op)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		var err error
		switch op.Operation {
		case "set":
			_, err = col.UpdateOne(ctx, op.Query, bson.M{"$set": op.Data}, options.Update().SetUpsert(true))
		case "delete":
			_, err = col.DeleteOne(ctx, op.Query)
		}

		cancel()

		if err != nil {
			logger.Error(fmt.Sprintf("Error syncing operation for '%s'. It will be queued again.", op.CollectionName), "DB-Sync")
			failedOps = append(failedOps, op)
		}
	}

	if len(failedOps) > 0 {
		d.queueMu.Lock()
		d.writeQueue = append(d.writeQueue, failedOps...)
		d.queueMu.Unlock()
		logger.Warn(fmt.Sprintf("%d operations could not be synced and will be retried.", len(failedOps)), "DB-Sync")
	} else {
		logger.Success("Sync completed.", "DB-Sync")
	}
}
