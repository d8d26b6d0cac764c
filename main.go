package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/robfig/cron/v3"

	"github.com/Dhyanvj/BuddyUp/realtime"
	"github.com/Dhyanvj/BuddyUp/routes"
	"github.com/Dhyanvj/BuddyUp/services"
	"github.com/Dhyanvj/BuddyUp/storage"
	"github.com/Dhyanvj/BuddyUp/store"
	"github.com/Dhyanvj/BuddyUp/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	db := storage.InitializeDB()
	storage.InitializeRedis()

	st := store.NewGormStore(db)
	hub := realtime.NewHub()

	// When Redis is up, change events cross server instances through
	// pub/sub; otherwise the local hub alone serves this process.
	var feed realtime.Publisher = hub
	if storage.Redis != nil {
		bridge := realtime.NewBridge(storage.Redis, hub, "buddyup:feed")
		go func() {
			if err := bridge.Run(context.Background()); err != nil {
				log.Printf("⚠️ realtime bridge stopped: %v", err)
			}
		}()
		feed = bridge
	}

	fanout := services.NewFanout(st, buildSink(st))
	participation := services.NewParticipation(st, fanout, feed)
	trips := services.NewTrips(st, fanout, feed)
	chat := services.NewChat(st, fanout, feed)
	reviews := services.NewReviews(st)
	reminders := services.NewReminders(st, fanout, storage.Redis)

	routes.Configure(routes.Deps{
		Store:         st,
		Trips:         trips,
		Participation: participation,
		Chat:          chat,
		Reviews:       reviews,
		Hub:           hub,
		Redis:         storage.Redis,
	})

	// Departure reminders: hourly sweep, deduplicated per (trip, window).
	c := cron.New()
	c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if sent, err := reminders.RunSweep(ctx, time.Now()); err != nil {
			log.Printf("⚠️ reminder sweep: %v", err)
		} else if sent > 0 {
			log.Printf("🔔 reminder sweep sent %d notifications", sent)
		}
	})
	c.Start()
	defer c.Stop()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	trip := app.Party("/api/trip")
	{
		trip.Post("/", accessTokenVerifierMiddleware, routes.CreateTrip)
		trip.Get("/search", routes.SearchNearbyTrips)
		trip.Get("/mine", accessTokenVerifierMiddleware, routes.GetMyTrips)
		trip.Get("/{id}", routes.GetTrip)
		trip.Patch("/{id}", accessTokenVerifierMiddleware, routes.EditTrip)
		trip.Post("/{id}/cancel", accessTokenVerifierMiddleware, routes.CancelTrip)
		trip.Post("/{id}/complete", accessTokenVerifierMiddleware, routes.CompleteTrip)
		// Participation
		trip.Post("/{id}/join", accessTokenVerifierMiddleware, routes.RequestToJoin)
		trip.Get("/{id}/participants", routes.ListTripParticipants)
		trip.Post("/{id}/participants/{participantID}/accept", accessTokenVerifierMiddleware, routes.AcceptParticipant)
		trip.Post("/{id}/participants/{participantID}/reject", accessTokenVerifierMiddleware, routes.RejectParticipant)
		trip.Post("/{id}/participants/{participantID}/remove", accessTokenVerifierMiddleware, routes.RemoveParticipant)
		trip.Post("/{id}/leave", accessTokenVerifierMiddleware, routes.LeaveTrip)
		// Chat
		trip.Get("/{id}/messages", accessTokenVerifierMiddleware, routes.ListTripMessages)
		trip.Post("/{id}/messages", accessTokenVerifierMiddleware, routes.SendTripMessage)
		trip.Post("/{id}/messages/read", accessTokenVerifierMiddleware, routes.MarkTripMessagesRead)
		trip.Post("/{id}/typing", accessTokenVerifierMiddleware, routes.Typing)
		trip.Get("/{id}/typing", accessTokenVerifierMiddleware, routes.ListTyping)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		notifications.Get("/", routes.ListNotifications)
		notifications.Get("/unread-count", routes.GetUnreadCount)
		notifications.Patch("/read-all", routes.MarkAllNotificationsRead)
		notifications.Patch("/{id}/read", routes.MarkNotificationRead)
		notifications.Delete("/all", routes.DeleteAllNotifications)
		notifications.Delete("/{id}", routes.DeleteNotification)
	}

	review := app.Party("/api/review")
	{
		review.Post("/", accessTokenVerifierMiddleware, routes.CreateReview)
		review.Get("/user/{id}", routes.ListUserReviews)
	}

	user := app.Party("/api/user")
	{
		user.Get("/{id}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUserProfile)
		user.Patch("/{id}/profile", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.UpdateUserProfile)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
	}

	rt := app.Party("/api/realtime")
	{
		rt.Get("/trips/{id}", accessTokenVerifierMiddleware, routes.TripFeed)
		rt.Get("/me", accessTokenVerifierMiddleware, routes.MyFeed)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}

// buildSink picks the push delivery backend from NOTIFY_SINK. In-app
// notification rows are written regardless of the sink.
func buildSink(st store.Store) services.Sink {
	switch os.Getenv("NOTIFY_SINK") {
	case "fcm":
		return services.NewFCMSink(st, os.Getenv("FCM_SERVER_KEY"))
	case "kafka":
		brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
		return services.NewKafkaSink(brokers, "buddyup.push")
	default:
		return services.LogSink{}
	}
}
