package apiapp

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Douba03/Datingapp-sub001/internal/config"
	allowancesvc "github.com/Douba03/Datingapp-sub001/internal/services/allowance"
	authsvc "github.com/Douba03/Datingapp-sub001/internal/services/auth"
	matchessvc "github.com/Douba03/Datingapp-sub001/internal/services/matches"
	swipesvc "github.com/Douba03/Datingapp-sub001/internal/services/swipes"
	"github.com/Douba03/Datingapp-sub001/internal/transport/http/handlers"
)

type Dependencies struct {
	AllowanceManager *allowancesvc.Manager
	MatchService     *matchessvc.Service
	SwipeService     *swipesvc.Service
	JWTManager       *authsvc.JWTManager
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	allowanceHandler := handlers.NewAllowanceHandler(deps.AllowanceManager)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Handle("/metrics", promhttp.Handler())
	r.With(authMW).Post("/swipe", swipeHandler.Handle)
	r.With(authMW).Get("/allowance", allowanceHandler.Get)
	r.With(authMW).Get("/matches", matchesHandler.List)
}
