package jobstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fasal/models"
)

// Mongo implements Store over the jobs and applications collections.
type Mongo struct {
	Jobs         *mongo.Collection
	Applications *mongo.Collection
}

func NewMongo(jobs, applications *mongo.Collection) *Mongo {
	return &Mongo{Jobs: jobs, Applications: applications}
}

func (s *Mongo) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.Jobs.InsertOne(ctx, job)
	return err
}

func (s *Mongo) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.Jobs.FindOne(ctx, bson.M{"jobid": jobID}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Mongo) ListJobs(ctx context.Context, f Filter) ([]models.Job, error) {
	query := bson.M{}
	if f.JobID != "" {
		query["jobid"] = f.JobID
	}
	if f.FarmerID != "" {
		query["farmerId"] = f.FarmerID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := s.Jobs.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		jobs = []models.Job{}
	}
	return jobs, nil
}

// TransitionStatus is the compare-and-swap on the status column: the
// expected status lives in the filter, so losing the race means the
// filter matches no document and ModifiedCount stays zero.
func (s *Mongo) TransitionStatus(ctx context.Context, jobID, from, to string) (bool, error) {
	res, err := s.Jobs.UpdateOne(ctx,
		bson.M{"jobid": jobID, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *Mongo) SetStatus(ctx context.Context, jobID, status string) error {
	res, err := s.Jobs.UpdateOne(ctx,
		bson.M{"jobid": jobID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) CreateApplication(ctx context.Context, app *models.Application) error {
	_, err := s.Applications.InsertOne(ctx, app)
	return err
}

func (s *Mongo) ListApplications(ctx context.Context, jobID string) ([]models.Application, error) {
	cursor, err := s.Applications.Find(ctx, bson.M{"jobid": jobID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var apps []models.Application
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		apps = []models.Application{}
	}
	return apps, nil
}
