package db

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/config"
	"github.com/techagentng/ireporter/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	DB *gorm.DB
}

// GetDB connects to postgres and runs the migrations.
func GetDB(c *config.Config) *GormDB {
	gormDB := &GormDB{}
	gormDB.Init(c)
	return gormDB
}

func (g *GormDB) Init(c *config.Config) {
	g.DB = getPostgresDB(c)

	if err := Migrate(g.DB); err != nil {
		logrus.WithError(err).Fatal("unable to run migrations")
	}
}

func getPostgresDB(c *config.Config) *gorm.DB {
	logrus.WithFields(logrus.Fields{
		"host": c.PostgresHost,
		"port": c.PostgresPort,
		"db":   c.PostgresDB,
	}).Info("connecting to postgres")
	postgresDSN := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresTimeZone)

	gormConfig := &gorm.Config{}
	if c.Env != "prod" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DSN: postgresDSN,
	}), gormConfig)
	if err != nil {
		logrus.WithError(err).Fatal("unable to connect to postgres")
	}

	return gormDB
}

// Migrate creates or updates every table the server uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Report{},
		&models.ReportMedia{},
		&models.Comment{},
		&models.Upvote{},
		&models.Notification{},
	)
}
