package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/dcastano/tienda-core/internal/cart"
	"github.com/dcastano/tienda-core/internal/catalog"
	"github.com/dcastano/tienda-core/internal/config"
	"github.com/dcastano/tienda-core/internal/httpx"
	"github.com/dcastano/tienda-core/internal/order"
	"github.com/dcastano/tienda-core/internal/payment"
)

func runMigrations(dsn, path string) error {
	// golang-migrate wants its own scheme for the pgx/v5 driver
	url := strings.Replace(dsn, "postgres://", "pgx5://", 1)
	m, err := migrate.New("file://"+path, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func main() {
	cfg := config.Load()
	if cfg.GatewaySecret == "" {
		// configuration error, not a user-facing one
		log.Fatal("[config] PAYMENT_GATEWAY_SECRET is required")
	}

	if err := runMigrations(cfg.PostgresDSN, cfg.MigrationsPath); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	log.Printf("[store] migrations applied")

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect failed: %v", err)
	}
	defer pool.Close()

	catRepo := catalog.NewPGRepo(pool)
	cartSvc := cart.NewService(cart.NewPGRepo(pool), catRepo)
	orderRepo := order.NewPGRepo(pool)
	orderSvc := order.NewService(orderRepo, cartSvc, catRepo)
	gateway := payment.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewaySecret)
	paySvc := payment.NewService(orderRepo, payment.NewPGStore(pool), gateway, orderSvc)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/products", listProductsHandler(catRepo))
	r.GET("/products/:id", getProductHandler(catRepo))

	auth := r.Group("/", httpx.Auth([]byte(cfg.JWTSecret)))
	auth.GET("/cart", listCartHandler(cartSvc))
	auth.POST("/cart/items", addToCartHandler(cartSvc))
	auth.PUT("/cart/items/:id", setCartQuantityHandler(cartSvc))
	auth.DELETE("/cart/items/:id", removeCartItemHandler(cartSvc))
	auth.DELETE("/cart/items", removeCartItemsHandler(cartSvc))
	auth.GET("/cart/total", cartTotalHandler(cartSvc))

	auth.POST("/orders", createOrderHandler(orderSvc))
	auth.GET("/orders", listOrdersHandler(orderSvc))
	auth.GET("/orders/:id", getOrderHandler(orderSvc))
	auth.PUT("/orders/:id/status", updateOrderStatusHandler(orderSvc))

	auth.POST("/orders/:id/payment", initiatePaymentHandler(paySvc))
	auth.POST("/payments/confirm", confirmPaymentHandler(paySvc))
	auth.POST("/orders/:id/cancel", cancelOrderHandler(paySvc))

	log.Printf("checkout-service listening on %s", cfg.Addr)
	log.Fatal(r.Run(cfg.Addr))
}
