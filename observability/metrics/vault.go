package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics aggregates the collectors tracking vault activity.
type VaultMetrics struct {
	deposits          prometheus.Counter
	depositedAssets   prometheus.Counter
	totalAssets       prometheus.Gauge
	totalShares       prometheus.Gauge
	pricePerShare     prometheus.Gauge
	withdrawalClaims  *prometheus.CounterVec
	rewardsFunded     prometheus.Counter
	rewardsClaimed    prometheus.Counter
	rewardPayoutTotal prometheus.Counter
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

// Vault returns the process-wide vault metrics registry, creating and
// registering the collectors on first use.
func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			deposits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_deposits_total",
				Help: "Count of successful deposits.",
			}),
			depositedAssets: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_deposited_assets_total",
				Help: "Cumulative collateral deposited, in base units.",
			}),
			totalAssets: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_total_assets",
				Help: "Aggregate collateral under management, in base units.",
			}),
			totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_total_shares",
				Help: "Current vault share supply.",
			}),
			pricePerShare: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_price_per_share",
				Help: "Collateral value of one share, 1e18-scaled.",
			}),
			withdrawalClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vault_withdrawal_claims_total",
				Help: "Count of claimed withdrawals by external system.",
			}, []string{"system"}),
			rewardsFunded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_rewards_funded_total",
				Help: "Count of reward funding notifications.",
			}),
			rewardsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_rewards_claimed_total",
				Help: "Count of non-zero reward claims.",
			}),
			rewardPayoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_reward_payout_total",
				Help: "Cumulative reward tokens paid out, in base units.",
			}),
		}
		prometheus.MustRegister(
			vaultRegistry.deposits,
			vaultRegistry.depositedAssets,
			vaultRegistry.totalAssets,
			vaultRegistry.totalShares,
			vaultRegistry.pricePerShare,
			vaultRegistry.withdrawalClaims,
			vaultRegistry.rewardsFunded,
			vaultRegistry.rewardsClaimed,
			vaultRegistry.rewardPayoutTotal,
		)
	})
	return vaultRegistry
}

func (m *VaultMetrics) ObserveDeposit(assets float64) {
	if m == nil {
		return
	}
	m.deposits.Inc()
	m.depositedAssets.Add(assets)
}

func (m *VaultMetrics) SetTotals(assets, shares, price float64) {
	if m == nil {
		return
	}
	m.totalAssets.Set(assets)
	m.totalShares.Set(shares)
	m.pricePerShare.Set(price)
}

func (m *VaultMetrics) ObserveWithdrawalClaim(system string) {
	if m == nil {
		return
	}
	if system == "" {
		system = "unknown"
	}
	m.withdrawalClaims.WithLabelValues(system).Inc()
}

func (m *VaultMetrics) ObserveRewardsFunded() {
	if m == nil {
		return
	}
	m.rewardsFunded.Inc()
}

func (m *VaultMetrics) ObserveRewardClaim(amount float64) {
	if m == nil {
		return
	}
	m.rewardsClaimed.Inc()
	m.rewardPayoutTotal.Add(amount)
}
