package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/backoffice/prdesk/internal/client/desk"
	"github.com/backoffice/prdesk/internal/client/session"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(f string) bool {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return true
	}
	return false
}

type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (a *app) printUser(u session.User, expiresAt time.Time) error {
	v := userView{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)}
	if !expiresAt.IsZero() {
		v.ExpiresAt = expiresAt.Format(time.RFC3339)
	}
	if a.format != formatTable {
		return a.encode(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "User:\t%s (%s)\n", u.Username, u.Email)
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role.DisplayName())
	fmt.Fprintf(tw, "ID:\t%s\n", u.ID)
	if v.ExpiresAt != "" {
		fmt.Fprintf(tw, "Session ends:\t%s\n", expiresAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) printSalesStats(s desk.SalesStats) error {
	if a.format != formatTable {
		return a.encode(s)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total:\t%d\n", s.Total)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusDraft, s.Drafts)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusUnderReview, s.UnderReview)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusActionRequired, s.ActionRequired)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusApproved, s.Approved)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusRejected, s.Rejected)
	return tw.Flush()
}

func (a *app) printAnalystStats(s desk.AnalystStats) error {
	if a.format != formatTable {
		return a.encode(s)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Available:\t%d\n", s.Available)
	fmt.Fprintf(tw, "Assigned:\t%d\n", s.Assigned)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusActive, s.Active)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusActionRequired, s.ActionRequired)
	fmt.Fprintf(tw, "%s:\t%d\n", pricing.StatusClosed, s.Closed)
	return tw.Flush()
}

func (a *app) printList(d *desk.Desk, prs []*pricing.PricingRequest) error {
	if a.format != formatTable {
		return a.encode(dto.ToWireList(prs))
	}
	if len(prs) == 0 {
		_, err := fmt.Fprintln(a.out, "No pricing requests")
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSALES\tANALYST\tACCOUNT\tITEMS\tUPDATED")
	for _, pr := range prs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			pr.ID, trackLabel(pr.SalesStatus), analystLabel(d, pr),
			orDash(pr.AccountInfo), len(pr.Items), pr.LastUpdated().Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) printRequest(d *desk.Desk, pr *pricing.PricingRequest) error {
	if a.format != formatTable {
		return a.encode(dto.ToWire(pr))
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", pr.ID)
	fmt.Fprintf(tw, "Sales status:\t%s\n", trackLabel(pr.SalesStatus))
	fmt.Fprintf(tw, "Analyst status:\t%s\n", analystLabel(d, pr))
	if outcome := d.Outcome(pr); outcome != pricing.OutcomeNone {
		fmt.Fprintf(tw, "Outcome:\t%s\n", outcome)
	}
	fmt.Fprintf(tw, "Assigned to:\t%s\n", orDash(pr.AssignedTo))
	fmt.Fprintf(tw, "Account:\t%s\n", orDash(pr.AccountInfo))
	fmt.Fprintf(tw, "Discount:\t%s\n", orDash(pr.Discount))
	if !pr.ShipmentDate.IsZero() {
		fmt.Fprintf(tw, "Shipment date:\t%s\n", pr.ShipmentDate.Format(time.DateOnly))
	}
	fmt.Fprintf(tw, "Origin:\t%s\n", address(pr.Origin))
	fmt.Fprintf(tw, "Destination:\t%s\n", address(pr.Destination))
	if pr.DaylightProtect {
		fmt.Fprintf(tw, "Insurance:\t%s\n", orDash(strings.TrimSpace(pr.InsuranceDescription+" "+pr.InsuranceNote)))
	}
	if pr.SubmissionDate != nil {
		fmt.Fprintf(tw, "Submitted:\t%s\n", pr.SubmissionDate.Local().Format(time.DateTime))
	}
	fmt.Fprintf(tw, "Updated:\t%s\n", pr.LastUpdated().Local().Format(time.DateTime))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nItems (%d)\n", len(pr.Items))
	tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tCLASS\tWEIGHT\tPIECES\tPALLETS\tCONTAINER")
	for _, it := range pr.Items {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%d\t%s\n",
			it.Name, it.CommodityClass, it.TotalWeight.String(), it.Pieces, it.Pallets, it.ContainerType)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(pr.Comments) > 0 {
		fmt.Fprintf(a.out, "\nComments\n")
		for _, c := range pr.Comments {
			fmt.Fprintf(a.out, "  [%s] %s: %s\n",
				c.CreatedAt.Local().Format(time.DateTime), c.AuthorRole.DisplayName(), c.Text)
		}
	}

	actions := d.Actions(pr)
	labels := make([]string, 0, len(actions))
	for _, act := range actions {
		labels = append(labels, actionLabel(act))
	}
	if len(labels) == 0 {
		labels = append(labels, "none")
	}
	_, err := fmt.Fprintf(a.out, "\nYou can: %s\n", strings.Join(labels, ", "))
	return err
}

// encode writes v as indented JSON or as YAML with the JSON field names
// and order
func (a *app) encode(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if a.format == formatJSON {
		_, err = fmt.Fprintln(a.out, string(raw))
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	blockStyle(&node)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = a.out.Write(buf.Bytes())
	return err
}

// blockStyle drops the flow style JSON parses into
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func trackLabel(s pricing.Status) string {
	if s == pricing.StatusNone {
		return "-"
	}
	return s.String()
}

func analystLabel(d *desk.Desk, pr *pricing.PricingRequest) string {
	if pr.State() == pricing.StatusClosed {
		if o := d.Outcome(pr); o != pricing.OutcomeNone {
			return o.String()
		}
	}
	return trackLabel(pr.AnalystStatus)
}

func actionLabel(a pricing.Action) string {
	words := strings.ReplaceAll(a.String(), "_", " ")
	return cases.Title(language.English).String(words)
}

func address(a pricing.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Address, a.State, a.Zip, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
