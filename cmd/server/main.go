package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecommerce-api/internal/config"
	"ecommerce-api/internal/controller"
	"ecommerce-api/internal/gateway"
	"ecommerce-api/internal/middleware"
	"ecommerce-api/internal/rabbit"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/service"
)

func main() {
	cfg := config.Load()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.MongoDBName)

	// Repositorios e índices
	orderRepo := repository.NewMongoOrderRepository(db)
	userRepo := repository.NewMongoUserRepository(db)
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("Error conectando a RabbitMQ: %v", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Error creando canal en RabbitMQ: %v", err)
	}
	publisher, err := rabbit.NewPublisher(ch)
	if err != nil {
		log.Fatal(err)
	}

	// Cliente del gateway de pagos (credenciales inyectadas, sin singleton)
	razorpay := gateway.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL)

	// Servicios
	paymentService := service.NewPaymentService(orderRepo, userRepo, razorpay, publisher, cfg.RazorpayKeySecret)
	orderService := service.NewOrderService(orderRepo, userRepo)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)

	// Handlers
	paymentCtrl := controller.NewPaymentController(paymentService)
	orderCtrl := controller.NewOrderController(orderService)
	authCtrl := controller.NewAuthController(authService, userRepo)

	// Router
	r := gin.Default()
	api := r.Group("/api")

	// Rutas públicas (el checkout del cliente pega acá)
	api.POST("/auth/register", authCtrl.Register)
	api.POST("/auth/login", authCtrl.Login)
	api.POST("/payment/create-order", paymentCtrl.CreateOrder)
	api.POST("/payment/verify", paymentCtrl.VerifyPayment)
	api.POST("/orders/cod", paymentCtrl.CreateCODOrder)
	api.GET("/orders/by-reference/:orderId", paymentCtrl.GetOrderByReference)

	// Rutas protegidas (requieren token)
	auth := api.Group("/")
	auth.Use(middleware.AuthMiddleware(authService))

	auth.GET("/auth/me", authCtrl.Me)
	auth.GET("/orders/mine", orderCtrl.GetMyOrders)

	// Rutas admin
	admin := auth.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.PATCH("/orders/:orderId/status", orderCtrl.UpdateStatus)
	admin.DELETE("/orders/:orderId", orderCtrl.DeleteOrder)
	admin.POST("/users/:userId/recompute-stats", orderCtrl.RecomputeUserStats)

	// Ejecutar servidor
	log.Printf("Ecommerce API ejecutándose en puerto %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
