package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/paywall/codec"
	"github.com/viant/paywall/config"
	"github.com/viant/paywall/delegate"
	"github.com/viant/paywall/event"
	"github.com/viant/paywall/fallback"
	"github.com/viant/paywall/metrics"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk"
	"go.uber.org/zap"
)

var (
	ErrNotInitialized  = errors.New("bridge: not initialized")
	ErrPaywallNotReady = errors.New("bridge: invalid trigger or paywalls not ready")
)

// Service is the bridge façade
type Service struct {
	paywall       sdk.Paywall
	broker        *purchase.Broker
	emitter       purchase.Emitter
	fallback      *fallback.Store
	host          sdk.Delegate
	observers     []Observer
	codec         *codec.Codec
	resolveSecret SecretResolver
	logger        *zap.Logger
	metrics       *metrics.Collector

	initMu      sync.Mutex
	mu          sync.RWMutex
	initialized bool
	status      sdk.DownloadStatus
	config      *config.Config
}

// New creates a service; broker and emitter must share the same event channel
func New(paywall sdk.Paywall, broker *purchase.Broker, emitter purchase.Emitter, options ...Option) *Service {
	ret := &Service{
		paywall: paywall,
		broker:  broker,
		emitter: emitter,
		logger:  zap.NewNop(),
		status:  sdk.DownloadNotStarted,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Initialize configures the SDK once; later calls return started=false without side effects
func (s *Service) Initialize(ctx context.Context, payload map[string]interface{}, customVariables map[string]interface{}) (bool, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.Initialized() {
		s.logger.Debug("initialize ignored, bridge already initialized")
		return false, nil
	}
	cfg, err := config.Parse(payload)
	if err != nil {
		return false, err
	}
	if s.resolveSecret != nil {
		if cfg.APIKey, err = s.resolveSecret(ctx, cfg.APIKey); err != nil {
			return false, &config.ConfigurationError{Field: "apiKey", Reason: err.Error()}
		}
	}
	s.storeFallback(ctx, cfg)
	selected := delegate.Select(cfg.UseDefaultDelegate, s.host, s.broker, delegate.SinkFunc(s.onEvent), codec.DecodeMap(customVariables), s.logger)

	s.mu.Lock()
	s.config = cfg
	s.initialized = true
	s.mu.Unlock()
	s.setDownloadStatus(ctx, sdk.DownloadInProgress)

	if err = s.paywall.Initialize(ctx, cfg, selected); err != nil {
		s.mu.Lock()
		s.initialized = false
		s.config = nil
		s.mu.Unlock()
		s.setDownloadStatus(ctx, sdk.DownloadFailed)
		return false, fmt.Errorf("failed to initialize sdk: %w", err)
	}
	s.logger.Info("bridge initialized",
		zap.String("environment", cfg.Environment.String()),
		zap.Bool("default_delegate", cfg.UseDefaultDelegate),
		zap.Bool("fallback_bundle", cfg.FallbackBundleName != ""))
	return true, nil
}

func (s *Service) storeFallback(ctx context.Context, cfg *config.Config) {
	if !cfg.HasFallbackBundle() {
		return
	}
	if s.fallback == nil {
		s.logger.Warn("fallback bundle supplied but no fallback store configured")
		return
	}
	name, err := s.fallback.Save(ctx, cfg)
	if err != nil {
		s.logger.Warn("failed to store fallback bundle, continuing without it", zap.Error(err))
		return
	}
	cfg.FallbackBundleName = name
}

// Initialized returns true after a successful Initialize and before Reset
func (s *Service) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Config returns the active configuration
func (s *Service) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *Service) onEvent(ctx context.Context, evt *event.Event) {
	switch evt.Type {
	case event.DownloadSuccess:
		s.setDownloadStatus(ctx, sdk.DownloadSuccess)
	case event.DownloadError:
		s.setDownloadStatus(ctx, sdk.DownloadFailed)
	}
	s.emit(ctx, schema.EventPaywall, event.ToDictionary(evt))
	for _, observer := range s.observers {
		observer(ctx, evt)
	}
}

func (s *Service) setDownloadStatus(ctx context.Context, status sdk.DownloadStatus) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()
	if changed {
		s.emit(ctx, schema.EventDownloadStateChanged, map[string]interface{}{"status": string(status)})
	}
}

// DownloadStatus returns the paywall download status
func (s *Service) DownloadStatus() sdk.DownloadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Service) emit(ctx context.Context, name string, payload map[string]interface{}) {
	if s.codec != nil {
		payload = s.codec.EncodeMap(payload)
	}
	err := s.emitter.Emit(ctx, name, payload)
	s.metrics.Event(name, err == nil)
	if err != nil {
		s.logger.Debug("event not delivered", zap.String("event", name), zap.Error(err))
	}
}

// CanPresentUpsell reports whether a trigger can be presented and why not
func (s *Service) CanPresentUpsell(trigger string) (bool, string) {
	if !s.Initialized() {
		return false, "Bridge not initialized"
	}
	return s.paywall.CanPresentUpsell(trigger)
}

// PresentUpsell presents a trigger; its events are also sent as paywall_event_handlers
func (s *Service) PresentUpsell(ctx context.Context, trigger string, traits map[string]interface{}, dontShowIfAlreadyEntitled bool) error {
	if !s.Initialized() {
		return ErrNotInitialized
	}
	listenerCtx := context.WithoutCancel(ctx)
	options := &sdk.PresentOptions{
		Traits:                    codec.DecodeMap(traits),
		DontShowIfAlreadyEntitled: dontShowIfAlreadyEntitled,
		Listener: func(evt *event.Event) {
			s.emit(listenerCtx, schema.EventPaywallHandlers, event.ToDictionary(evt))
		},
	}
	s.logger.Debug("presenting upsell", zap.String("trigger", trigger))
	if err := s.paywall.PresentUpsell(ctx, trigger, options); err != nil {
		return fmt.Errorf("failed to present %v: %w", trigger, err)
	}
	return nil
}

func (s *Service) HideUpsell() bool {
	return s.paywall.HideUpsell()
}

func (s *Service) HideAllUpsells() {
	s.paywall.HideAllUpsells()
}

// HandlePurchaseResponse resolves a pending purchase, unmatched responses are ignored
func (s *Service) HandlePurchaseResponse(response *purchase.Response) bool {
	return s.broker.HandlePurchaseResponse(response)
}

// HandleRestoreResponse resolves a pending restore, unmatched responses are ignored
func (s *Service) HandleRestoreResponse(response *purchase.Response) bool {
	return s.broker.HandleRestoreResponse(response)
}

func (s *Service) FallbackOpenOrCloseEvent(trigger string, isOpen bool, viewType string) {
	s.paywall.FallbackOpenOrCloseEvent(trigger, isOpen, viewType)
}

// FetchedTriggerNames returns an empty list when the SDK cannot list triggers
func (s *Service) FetchedTriggerNames() []string {
	names, err := s.paywall.FetchedTriggerNames()
	if err != nil || names == nil {
		if err != nil && !errors.Is(err, sdk.ErrUnsupported) {
			s.logger.Warn("failed to fetch trigger names", zap.Error(err))
		}
		return []string{}
	}
	return names
}

func (s *Service) PaywallInfo(trigger string) (*sdk.PaywallInfo, error) {
	info, ok := s.paywall.PaywallInfo(trigger)
	if !ok || info == nil {
		return nil, ErrPaywallNotReady
	}
	return info, nil
}

func (s *Service) HandleDeepLink(url string) bool {
	if url == "" {
		return false
	}
	handled := s.paywall.HandleDeepLink(url)
	s.logger.Debug("deep link handled", zap.String("url", url), zap.Bool("handled", handled))
	return handled
}

func (s *Service) SetRevenueCatAppUserID(id string) {
	s.paywall.SetRevenueCatAppUserID(id)
}

func (s *Service) SetCustomUserID(id string) {
	s.paywall.SetCustomUserID(id)
}

func (s *Service) HasEntitlementForPaywall(ctx context.Context, trigger string) (*bool, error) {
	return s.paywall.HasEntitlementForPaywall(ctx, trigger)
}

func (s *Service) HasAnyActiveSubscription(ctx context.Context) (bool, error) {
	return s.paywall.HasAnyActiveSubscription(ctx)
}

func (s *Service) HasAnyEntitlement(ctx context.Context) (bool, error) {
	return s.paywall.HasAnyEntitlement(ctx)
}

func (s *Service) ExperimentInfo(trigger string) *sdk.ExperimentInfo {
	return s.paywall.ExperimentInfo(trigger)
}

func (s *Service) DisableRestoreFailedDialog() {
	s.paywall.DisableRestoreFailedDialog()
}

func (s *Service) SetCustomRestoreFailedStrings(strings *sdk.RestoreFailedStrings) {
	if strings == nil {
		strings = &sdk.RestoreFailedStrings{}
	}
	s.paywall.SetCustomRestoreFailedStrings(strings)
}

// SetLightDarkModeOverride applies a mode; unknown modes fall back to system
func (s *Service) SetLightDarkModeOverride(value string) sdk.LightDarkMode {
	mode, ok := sdk.ParseLightDarkMode(value)
	if !ok {
		s.logger.Warn("invalid light/dark mode, defaulting to system", zap.String("mode", value))
	}
	s.paywall.SetLightDarkModeOverride(mode)
	return mode
}

// Reset resets the SDK, orphans pending purchases and allows a new Initialize
func (s *Service) Reset(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if err := s.paywall.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset sdk: %w", err)
	}
	orphaned := s.broker.Reset()
	s.mu.Lock()
	s.initialized = false
	s.config = nil
	s.mu.Unlock()
	s.setDownloadStatus(ctx, sdk.DownloadNotStarted)
	s.logger.Info("bridge reset", zap.Int("orphaned", orphaned))
	return nil
}

// Driver returns the SDK driver when the hosted SDK supports simulated user actions
func (s *Service) Driver() (sdk.Driver, bool) {
	driver, ok := s.paywall.(sdk.Driver)
	return driver, ok
}

// Broker returns the purchase broker
func (s *Service) Broker() *purchase.Broker {
	return s.broker
}
