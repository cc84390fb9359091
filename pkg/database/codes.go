package database

import (
	"context"
	"fmt"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	codesCollection    = "codes"
	programsCollection = "special_programs"
)

// CodeRepository persists codes and special programs in the hoyoverse database.
// It has no cache of its own; identity caching is done by the caller.
type CodeRepository struct {
	db     *Database
	dbName string
}

// NewCodeRepository creates a repository over dbName on the shared connection
func NewCodeRepository(db *Database, dbName string) *CodeRepository {
	return &CodeRepository{db: db, dbName: dbName}
}

func (r *CodeRepository) col(name string) (*mongo.Collection, error) {
	if r.db == nil || !r.db.Connected() {
		return nil, ErrNotConnected
	}
	col := r.db.CollectionIn(r.dbName, name)
	if col == nil {
		return nil, ErrNotConnected
	}
	return col, nil
}

func codeQuery(game models.Game, code string) bson.M {
	return bson.M{"game": string(game), "code": code}
}

func programQuery(game models.Game, version string) bson.M {
	return bson.M{"game": string(game), "version": version}
}

// FindCode loads a code, (nil, nil) when it does not exist
func (r *CodeRepository) FindCode(ctx context.Context, game models.Game, code string) (*models.Code, error) {
	col, err := r.col(codesCollection)
	if err != nil {
		return nil, err
	}

	var doc models.Code
	if err := col.FindOne(ctx, codeQuery(game, code)).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find code %s/%s: %w", game, code, err)
	}
	return &doc, nil
}

// InsertCode stores a new code document
func (r *CodeRepository) InsertCode(ctx context.Context, c *models.Code) error {
	col, err := r.col(codesCollection)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert code %s/%s: %w", c.Game, c.Code, err)
	}
	return nil
}

// UpdateCodeField sets a single field of a code
func (r *CodeRepository) UpdateCodeField(ctx context.Context, game models.Game, code, field string, value interface{}) error {
	col, err := r.col(codesCollection)
	if err != nil {
		return err
	}
	if _, err := col.UpdateOne(ctx, codeQuery(game, code), bson.M{"$set": bson.M{field: value}}); err != nil {
		return fmt.Errorf("update code %s/%s %s: %w", game, code, field, err)
	}
	return nil
}

// AddCodeReward appends a reward with $addToSet
func (r *CodeRepository) AddCodeReward(ctx context.Context, game models.Game, code string, reward models.CodeReward) error {
	col, err := r.col(codesCollection)
	if err != nil {
		return err
	}
	update := bson.M{"$addToSet": bson.M{models.CodeFieldRewards: reward}}
	if _, err := col.UpdateOne(ctx, codeQuery(game, code), update); err != nil {
		return fmt.Errorf("add reward to %s/%s: %w", game, code, err)
	}
	return nil
}

// FindProgram loads a special program, (nil, nil) when it does not exist
func (r *CodeRepository) FindProgram(ctx context.Context, game models.Game, version string) (*models.SpecialProgram, error) {
	col, err := r.col(programsCollection)
	if err != nil {
		return nil, err
	}

	var doc models.SpecialProgram
	if err := col.FindOne(ctx, programQuery(game, version)).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find program %s/%s: %w", game, version, err)
	}
	return &doc, nil
}

// InsertProgram stores a new special program document
func (r *CodeRepository) InsertProgram(ctx context.Context, p *models.SpecialProgram) error {
	col, err := r.col(programsCollection)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert program %s/%s: %w", p.Game, p.Version, err)
	}
	return nil
}

// UpdateProgramField sets a single field of a special program
func (r *CodeRepository) UpdateProgramField(ctx context.Context, game models.Game, version, field string, value interface{}) error {
	col, err := r.col(programsCollection)
	if err != nil {
		return err
	}
	if _, err := col.UpdateOne(ctx, programQuery(game, version), bson.M{"$set": bson.M{field: value}}); err != nil {
		return fmt.Errorf("update program %s/%s %s: %w", game, version, field, err)
	}
	return nil
}

// PushProgramCode appends a member code with $push
func (r *CodeRepository) PushProgramCode(ctx context.Context, game models.Game, version, code string) error {
	col, err := r.col(programsCollection)
	if err != nil {
		return err
	}
	update := bson.M{"$push": bson.M{models.ProgramFieldCodes: code}}
	if _, err := col.UpdateOne(ctx, programQuery(game, version), update); err != nil {
		return fmt.Errorf("push code to program %s/%s: %w", game, version, err)
	}
	return nil
}
