// Package simulator provides an in-process stand-in for the vendor paywall SDK.
//
// It renders nothing. Presentations are bookkeeping entries and user actions are
// driven through the sdk.Driver methods, which call the delegate and emit the
// same event sequence a real SDK would.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/paywall/config"
	"github.com/viant/paywall/event"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/sdk"
	"go.uber.org/zap"
)

var (
	ErrNotInitialized = errors.New("simulator: not initialized")
	ErrNotPresented   = errors.New("simulator: paywall not presented")
)

const alreadyPresented = "Paywall already presented"

type presentation struct {
	trigger  *Trigger
	listener sdk.Listener
	traits   map[string]interface{}
}

// Simulator implements sdk.Paywall and sdk.Driver
type Simulator struct {
	mu            sync.Mutex
	triggers      map[string]*Trigger
	presented     map[string]*presentation
	order         []string
	entitled      map[string]bool
	experiments   map[string]*sdk.ExperimentInfo
	cfg           *config.Config
	delegate      sdk.Delegate
	downloaded    bool
	downloadDelay time.Duration
	downloadError string
	state         State
	logger        *zap.Logger
	now           func() time.Time
}

// State is a snapshot of settings the bridge pushed into the simulator
type State struct {
	Initialized          bool
	RevenueCatAppUserID  string
	CustomUserID         string
	Mode                 sdk.LightDarkMode
	RestoreDialogOff     bool
	RestoreFailedStrings *sdk.RestoreFailedStrings
	FallbackEvents       []FallbackEvent
	DeepLinks            []string
}

// FallbackEvent records a fallback open or close reported by the scripting layer
type FallbackEvent struct {
	Trigger  string
	IsOpen   bool
	ViewType string
}

// New creates a simulator
func New(options ...Option) *Simulator {
	ret := &Simulator{
		triggers:    map[string]*Trigger{},
		presented:   map[string]*presentation{},
		entitled:    map[string]bool{},
		experiments: map[string]*sdk.ExperimentInfo{},
		logger:      zap.NewNop(),
		now:         time.Now,
		state:       State{Mode: sdk.ModeSystem},
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Initialize stores the delegate and simulates the config download
func (s *Simulator) Initialize(ctx context.Context, cfg *config.Config, delegate sdk.Delegate) error {
	if cfg == nil || delegate == nil {
		return fmt.Errorf("simulator: config and delegate are required")
	}
	s.mu.Lock()
	s.cfg = cfg
	s.delegate = delegate
	s.state.Initialized = true
	s.state.CustomUserID = cfg.CustomUserID
	s.state.RevenueCatAppUserID = cfg.RevenueCatAppUserID
	s.assignExperiments()
	s.mu.Unlock()

	s.logger.Info("simulated sdk initialized",
		zap.String("environment", cfg.Environment.String()),
		zap.Int("triggers", len(s.triggers)),
		zap.Int("custom_variables", len(delegate.CustomVariableValues())))
	s.emit(ctx, nil, &event.Event{Type: event.InitializeStart})
	if s.downloadDelay > 0 {
		go s.download(context.WithoutCancel(ctx))
		return nil
	}
	s.download(ctx)
	return nil
}

func (s *Simulator) download(ctx context.Context) {
	started := s.now()
	if s.downloadDelay > 0 {
		time.Sleep(s.downloadDelay)
	}
	if s.downloadError != "" {
		s.emit(ctx, nil, &event.Event{Type: event.DownloadError, Error: s.downloadError})
		return
	}
	s.mu.Lock()
	s.downloaded = true
	s.mu.Unlock()
	elapsed := s.now().Sub(started).Milliseconds()
	s.emit(ctx, nil, &event.Event{
		Type:                        event.DownloadSuccess,
		PaywallDownloadTimeTakenMS:  event.Int64(elapsed),
		TemplateDownloadTimeTakenMS: event.Int64(elapsed / 2),
		BundleDownloadTimeMS:        event.Int64(elapsed),
	})
}

// assignExperiments enrolls experiment triggers; callers hold the lock
func (s *Simulator) assignExperiments() {
	for name, trigger := range s.triggers {
		if trigger.Experiment == nil {
			continue
		}
		s.experiments[name] = &sdk.ExperimentInfo{
			Trigger:         name,
			EnrolledTrigger: name,
			Triggers:        []string{name},
			ExperimentName:  trigger.Experiment.Name,
			ExperimentID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte(trigger.Experiment.Name)).String(),
			ExperimentType:  trigger.Experiment.Type,
			ChosenVariantDetails: &sdk.VariantDetails{
				AllocationName: trigger.Experiment.Variant,
				AllocationID:   uuid.NewString(),
			},
		}
	}
}

// PresentUpsell presents the paywall of a trigger; failures are reported as events
func (s *Simulator) PresentUpsell(ctx context.Context, trigger string, options *sdk.PresentOptions) error {
	if options == nil {
		options = &sdk.PresentOptions{}
	}
	s.mu.Lock()
	if !s.state.Initialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	t, ok := s.triggers[trigger]
	var failure string
	switch {
	case !ok:
		failure = "Invalid trigger: " + trigger
	case !s.downloaded && !s.cfg.HasFallbackBundle():
		failure = "Paywalls not downloaded"
	case s.presented[trigger] != nil:
		failure = alreadyPresented
	}
	skip := failure == "" && options.DontShowIfAlreadyEntitled && s.ownsAny(t)
	if failure == "" && !skip {
		traits := map[string]interface{}{}
		for k, v := range s.cfg.CustomUserTraits {
			traits[k] = v
		}
		for k, v := range options.Traits {
			traits[k] = v
		}
		s.presented[trigger] = &presentation{trigger: t, listener: options.Listener, traits: traits}
		s.order = append(s.order, trigger)
	}
	s.mu.Unlock()

	paywall := ""
	if t != nil {
		paywall = t.Paywall
	}
	switch {
	case failure != "":
		s.emit(ctx, options.Listener, &event.Event{Type: event.PaywallOpenFailed, TriggerName: trigger, PaywallName: paywall, Error: failure})
	case skip:
		s.emit(ctx, options.Listener, &event.Event{Type: event.PaywallSkipped, TriggerName: trigger, PaywallName: paywall})
	default:
		s.emit(ctx, options.Listener, &event.Event{Type: event.PaywallOpen, TriggerName: trigger, PaywallName: paywall, ViewType: event.ViewPresented, IsSecondTry: event.Bool(false)})
		s.emit(ctx, options.Listener, &event.Event{Type: event.WebViewRendered, TriggerName: trigger, PaywallName: paywall})
	}
	return nil
}

// ownsAny callers hold the lock
func (s *Simulator) ownsAny(t *Trigger) bool {
	for _, product := range t.Products {
		if s.entitled[product] {
			return true
		}
	}
	return false
}

// Presented returns the traits of a presented trigger
func (s *Simulator) Presented(trigger string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presented[trigger]
	if !ok {
		return nil, false
	}
	return p.traits, true
}

// HideUpsell closes the most recently presented paywall
func (s *Simulator) HideUpsell() bool {
	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return false
	}
	trigger := s.order[len(s.order)-1]
	p := s.remove(trigger)
	s.mu.Unlock()
	s.emitClose(context.Background(), p, false)
	return true
}

// HideAllUpsells closes every presented paywall
func (s *Simulator) HideAllUpsells() {
	s.mu.Lock()
	var closed []*presentation
	for len(s.order) > 0 {
		closed = append(closed, s.remove(s.order[len(s.order)-1]))
	}
	s.mu.Unlock()
	for _, p := range closed {
		s.emitClose(context.Background(), p, true)
	}
}

// remove callers hold the lock
func (s *Simulator) remove(trigger string) *presentation {
	p := s.presented[trigger]
	delete(s.presented, trigger)
	for i, candidate := range s.order {
		if candidate == trigger {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return p
}

func (s *Simulator) emitClose(ctx context.Context, p *presentation, dismissAll bool) {
	if p == nil {
		return
	}
	evt := &event.Event{Type: event.PaywallClose, TriggerName: p.trigger.Name, PaywallName: p.trigger.Paywall, IsSecondTry: event.Bool(false)}
	if dismissAll {
		evt.DismissAll = event.Bool(true)
	}
	s.emit(ctx, p.listener, evt)
}

// CanPresentUpsell checks initialization, trigger and download state
func (s *Simulator) CanPresentUpsell(trigger string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Initialized {
		return false, "SDK not initialized"
	}
	t, ok := s.triggers[trigger]
	if !ok {
		return false, "Trigger not found: " + trigger
	}
	if t.Hidden {
		return false, "Paywall should not be shown"
	}
	if !s.downloaded && !s.cfg.HasFallbackBundle() {
		return false, "Paywalls not downloaded and no fallback bundle"
	}
	return true, ""
}

func (s *Simulator) PaywallInfo(trigger string) (*sdk.PaywallInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[trigger]
	if !ok || !s.downloaded {
		return nil, false
	}
	return &sdk.PaywallInfo{PaywallTemplateName: t.Paywall, ShouldShow: !t.Hidden}, true
}

// HandleDeepLink accepts links that name a known trigger
func (s *Simulator) HandleDeepLink(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DeepLinks = append(s.state.DeepLinks, url)
	for name := range s.triggers {
		if name != "" && containsSegment(url, name) {
			return true
		}
	}
	return false
}

func (s *Simulator) FetchedTriggerNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.downloaded {
		return []string{}, nil
	}
	ret := make([]string, 0, len(s.triggers))
	for name := range s.triggers {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret, nil
}

// HasEntitlementForPaywall returns nil for unknown triggers
func (s *Simulator) HasEntitlementForPaywall(ctx context.Context, trigger string) (*bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[trigger]
	if !ok {
		return nil, nil
	}
	owned := s.ownsAny(t)
	return &owned, nil
}

func (s *Simulator) HasAnyActiveSubscription(ctx context.Context) (bool, error) {
	return s.HasAnyEntitlement(ctx)
}

func (s *Simulator) HasAnyEntitlement(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entitled) > 0, nil
}

func (s *Simulator) ExperimentInfo(trigger string) *sdk.ExperimentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.experiments[trigger]
	if !ok {
		return nil
	}
	clone := *info
	return &clone
}

func (s *Simulator) SetRevenueCatAppUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RevenueCatAppUserID = id
}

func (s *Simulator) SetCustomUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CustomUserID = id
}

func (s *Simulator) DisableRestoreFailedDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RestoreDialogOff = true
}

func (s *Simulator) SetCustomRestoreFailedStrings(strings *sdk.RestoreFailedStrings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RestoreFailedStrings = strings
}

func (s *Simulator) SetLightDarkModeOverride(mode sdk.LightDarkMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = mode
}

func (s *Simulator) FallbackOpenOrCloseEvent(trigger string, isOpen bool, viewType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FallbackEvents = append(s.state.FallbackEvents, FallbackEvent{Trigger: trigger, IsOpen: isOpen, ViewType: viewType})
}

// Reset forgets the delegate, presentations and download state; entitlements survive
func (s *Simulator) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented = map[string]*presentation{}
	s.order = nil
	s.experiments = map[string]*sdk.ExperimentInfo{}
	s.cfg = nil
	s.delegate = nil
	s.downloaded = false
	s.state = State{Mode: sdk.ModeSystem}
	return nil
}

// State returns a snapshot of the pushed settings
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := s.state
	ret.FallbackEvents = append([]FallbackEvent(nil), s.state.FallbackEvents...)
	ret.DeepLinks = append([]string(nil), s.state.DeepLinks...)
	return ret
}

func (s *Simulator) emit(ctx context.Context, listener sdk.Listener, evt *event.Event) {
	if evt.Timestamp == nil {
		evt.Timestamp = event.Int64(s.now().Unix())
	}
	s.mu.Lock()
	delegate := s.delegate
	s.mu.Unlock()
	if delegate != nil {
		delegate.OnPaywallEvent(ctx, evt)
	}
	if listener != nil {
		listener(evt)
	}
}

var _ sdk.Paywall = (*Simulator)(nil)
var _ sdk.Driver = (*Simulator)(nil)

func containsSegment(url, name string) bool {
	for i := 0; i+len(name) <= len(url); i++ {
		if url[i:i+len(name)] != name {
			continue
		}
		before := i == 0 || url[i-1] == '/' || url[i-1] == '='
		after := i+len(name) == len(url) || url[i+len(name)] == '/' || url[i+len(name)] == '?' || url[i+len(name)] == '&'
		if before && after {
			return true
		}
	}
	return false
}

// productOf resolves the product bought on a trigger
func productOf(t *Trigger, request *purchase.Request) (*purchase.Request, error) {
	if request != nil && request.ProductID != "" {
		return request, nil
	}
	if len(t.Products) == 0 {
		return nil, fmt.Errorf("simulator: trigger %v has no products", t.Name)
	}
	return &purchase.Request{ProductID: t.Products[0]}, nil
}
