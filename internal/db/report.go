package db

import (
	"context"
	"time"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReportCollection implements ReportCollection for MongoDB.
type MongoReportCollection struct {
	Collection *mongo.Collection
}

func (c *MongoReportCollection) InsertReport(ctx context.Context, report *models.MedicalReport) error {
	report.CreatedAt = time.Now()
	if report.Type == "" {
		report.Type = "other"
	}
	if report.Status == "" {
		report.Status = "normal"
	}
	oid, err := insertOne(ctx, c.Collection, report)
	if err != nil {
		return err
	}
	report.ID = oid
	return nil
}

// FindReportsByPatient lists a patient's reports, newest first.
func (c *MongoReportCollection) FindReportsByPatient(ctx context.Context, patientID string, reportType string) ([]models.MedicalReport, error) {
	oid, err := objectID(patientID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"patient_id": oid}
	if reportType != "" {
		filter["type"] = reportType
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findAll[models.MedicalReport](ctx, c.Collection, filter, opts)
}

func (c *MongoReportCollection) FindReportByID(ctx context.Context, id string) (*models.MedicalReport, error) {
	return findByID[models.MedicalReport](ctx, c.Collection, id)
}

func (c *MongoReportCollection) DeleteReport(ctx context.Context, id string) error {
	return deleteByID(ctx, c.Collection, id)
}
