// config.go
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	MongoDBName string
	RabbitURL   string
	Port        string

	// Credenciales del gateway de pagos. KeySecret firma los callbacks,
	// nunca debe loguearse ni devolverse en ninguna respuesta.
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	JWTSecret string
}

func Load() *Config {
	// .env es opcional; en docker las variables llegan por entorno
	if err := godotenv.Load(); err != nil {
		log.Println("No se encontró archivo .env, usando variables de entorno")
	}

	return &Config{
		MongoURI:          getEnv("MONGO_URI", "mongodb://host.docker.internal:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "ecommerce_db"),
		RabbitURL:         getEnv("RABBIT_URL", "amqp://host.docker.internal"),
		Port:              getEnv("PORT", "8080"),
		RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
