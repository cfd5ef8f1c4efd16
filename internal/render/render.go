// Package render turns a CampaignView into the plain-text results page.
package render

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/fundledger/campaign-results/internal/core/domain"
)

const weiDecimals = 18

// Page messages.
const (
	MsgLoading        = "Loading ledger, accounts, and contract..."
	MsgRefreshing     = "Refreshing campaign data..."
	MsgNotStarted     = "The Fund campaign has not been started yet."
	MsgNotStartedHint = "Please wait for the admin to start the campaign."
	MsgInProgress     = "The Fund campaign is being conducted at the moment."
	MsgInProgressHint = "Results will be displayed once the campaign has ended."
	MsgInvalid        = "The ledger reports the campaign as both started and ended. Results cannot be shown."
	MsgResultsTitle   = "Approved Fund Applications"
	MsgNoResults      = "No approved applications found."
	MsgRedeploy       = "Re-deploy the contract to start Fund campaign again."
)

// Columns of the results table, in display order.
var Columns = []string{"Business Name", "Owner", "Phone", "Funding Amount (ETH)", "Purpose", "Documents"}

// FormatETH converts a base-10 wei amount to ETH without trailing zeros.
// Malformed amounts are returned unchanged.
func FormatETH(wei string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(wei))
	if err != nil {
		return wei
	}
	return d.Shift(-weiDecimals).String()
}

// Page renders v. It is a pure function of the view.
func Page(v *domain.CampaignView) string {
	var b strings.Builder
	b.WriteString(navigation(v))
	b.WriteString("\n\n")

	if v.Loading() && v.Phase() == "" {
		b.WriteString(MsgLoading + "\n")
		return b.String()
	}
	if v.Loading() {
		b.WriteString(MsgRefreshing + "\n\n")
	}

	switch v.Phase() {
	case domain.PhaseNotStarted:
		b.WriteString(MsgNotStarted + "\n" + MsgNotStartedHint + "\n")
	case domain.PhaseInProgress:
		b.WriteString(MsgInProgress + "\n" + MsgInProgressHint + "\n")
	case domain.PhaseConcluded:
		writeResults(&b, v)
	default:
		b.WriteString(MsgInvalid + "\n")
	}
	return b.String()
}

func navigation(v *domain.CampaignView) string {
	if v.IsViewerAdmin() {
		return fmt.Sprintf("[admin] %s", v.Viewer())
	}
	if v.Viewer().IsZero() {
		return "[viewer]"
	}
	return fmt.Sprintf("[viewer] %s", v.Viewer())
}

func writeResults(b *strings.Builder, v *domain.CampaignView) {
	b.WriteString(MsgResultsTitle + "\n\n")

	rows := v.Rows()
	if len(v.Roster()) == 0 {
		b.WriteString(MsgNoResults + "\n")
	} else {
		tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(Columns, "\t"))
		for _, r := range rows {
			fmt.Fprintln(tw, strings.Join([]string{
				cell(r.BusinessName),
				cell(r.OwnerName),
				cell(r.Phone),
				FormatETH(r.FundingAmountWei),
				cell(r.Purpose),
				cell(r.DocumentLink),
			}, "\t"))
		}
		_ = tw.Flush()
		if missing := len(v.Missing()); missing > 0 {
			fmt.Fprintf(b, "\n%d approved application(s) could not be loaded.\n", missing)
		}
	}

	if v.IsViewerAdmin() {
		b.WriteString("\n" + MsgRedeploy + "\n")
	}
}

// cell keeps one record on one line.
func cell(s string) string {
	s = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
