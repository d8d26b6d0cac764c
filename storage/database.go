package storage

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Dhyanvj/BuddyUp/models"
)

var DB *gorm.DB

func connectToDB() *gorm.DB {
	// Only load .env in development (when RENDER env var is not set)
	if os.Getenv("RENDER") == "" {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not load .env file (this is normal in production)")
		}
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Panic("DB_CONNECTION_STRING environment variable is required")
	}

	db, dbError := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if dbError != nil {
		log.Panic("error connection to db: " + dbError.Error())
	}

	DB = db
	return db
}

func performMigrations(db *gorm.DB) {
	db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.TripParticipant{},
		&models.Message{},
		&models.Notification{},
		&models.Review{},
		&models.ReminderLog{},
	)

	seedSystemUser(db)
}

// seedSystemUser makes sure the sender of system chat messages exists.
func seedSystemUser(db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Where("id = ?", models.SystemUserID).Count(&count)
	if count > 0 {
		return
	}
	system := models.User{
		ID:       models.SystemUserID,
		Email:    "system@buddyup.app",
		FullName: "BuddyUp",
	}
	if err := db.Create(&system).Error; err != nil {
		log.Println("Warning: could not seed system user:", err)
	}
}

func InitializeDB() *gorm.DB {
	db := connectToDB()
	performMigrations(db)
	return db
}
