package enum

// AccountStatus is the lifecycle status of an email sending account.
// DISCONNECTED is terminal and only ever set by an external disconnect action.
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "ACTIVE"
	AccountStatusWarming      AccountStatus = "WARMING"
	AccountStatusPaused       AccountStatus = "PAUSED"
	AccountStatusDisconnected AccountStatus = "DISCONNECTED"
)

func (s AccountStatus) String() string {
	return string(s)
}

// CheckableStatuses are the statuses eligible for health checks and warmup advancement
func CheckableStatuses() []AccountStatus {
	return []AccountStatus{AccountStatusActive, AccountStatusWarming}
}

type ProviderKind string

const (
	ProviderSMTP        ProviderKind = "SMTP"
	ProviderOAuth       ProviderKind = "OAUTH"
	ProviderManagedPool ProviderKind = "MANAGED_POOL"
)

func (p ProviderKind) String() string {
	return string(p)
}

// RequiresConnectivityProbe reports whether the provider is checked with a live SMTP handshake
func (p ProviderKind) RequiresConnectivityProbe() bool {
	return p == ProviderSMTP || p == ProviderManagedPool
}

type AccountTier string

const (
	TierFree AccountTier = "FREE"
	TierPro  AccountTier = "PRO"
)

func (t AccountTier) String() string {
	return string(t)
}
