package directory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fasal/models"
)

// Mongo is the read/write layer over worker and leader records. The
// dispatch engine only ever reads through Pool and Get; writes happen
// through the owning candidate's heartbeat handlers.
type Mongo struct {
	Workers *mongo.Collection
}

func NewMongo(workers *mongo.Collection) *Mongo {
	return &Mongo{Workers: workers}
}

// Pool returns the candidates a job's offer round may consider: leaders
// for group hire, workers otherwise, in either case only those whose
// availability is available or online.
func (d *Mongo) Pool(ctx context.Context, hireKind string) ([]models.Candidate, error) {
	role := models.RoleWorker
	if hireKind == models.HireGroup {
		role = models.RoleLeader
	}

	cursor, err := d.Workers.Find(ctx, bson.M{
		"role":   role,
		"status": bson.M{"$in": []string{models.StatusAvailable, models.StatusOnline}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pool []models.Candidate
	if err := cursor.All(ctx, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// Get fetches one candidate, nil when absent.
func (d *Mongo) Get(ctx context.Context, userID string) (*models.Candidate, error) {
	var c models.Candidate
	err := d.Workers.FindOne(ctx, bson.M{"userid": userID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
