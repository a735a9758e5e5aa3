package purchase

// Kind identifies a pending request table
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindRestore  Kind = "restore"
)

// Event names emitted to the scripting layer
const (
	EventMakePurchase     = "make_purchase"
	EventRestorePurchases = "restore_purchases"
)

// Request describes a purchase asked for by the vendor SDK
type Request struct {
	ProductID  string `json:"productId" yaml:"productId"`
	BasePlanID string `json:"basePlanId,omitempty" yaml:"basePlanId,omitempty"`
	OfferID    string `json:"offerId,omitempty" yaml:"offerId,omitempty"`
}

// Response is sent back by the scripting layer for a purchase or a restore
type Response struct {
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

func (r *Request) payload(transactionID string) map[string]interface{} {
	ret := map[string]interface{}{
		"productId":     r.ProductID,
		"transactionId": transactionID,
		"status":        StatusStarting,
	}
	if r.BasePlanID != "" {
		ret["basePlanId"] = r.BasePlanID
	}
	if r.OfferID != "" {
		ret["offerId"] = r.OfferID
	}
	return ret
}

func restorePayload(transactionID string) map[string]interface{} {
	return map[string]interface{}{
		"transactionId": transactionID,
		"status":        StatusStarting,
	}
}
