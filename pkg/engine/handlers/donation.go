package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"donation-nodes/pkg/clients/charityspurse"
	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/state"
)

// DonationSpec parameterizes a DonationHandler. Every donation node is the
// same fetch/filter/cursor cycle; only these fields differ.
type DonationSpec struct {
	Type        string
	DisplayName string
	Summary     string
	DefaultName string
	Version     int

	// Polling nodes are gated and fail soft; pipeline nodes are invoked by an
	// upstream step and surface fetch errors as OperationError.
	Polling bool
	Match   donation.Predicate

	// CredentialsRequired makes a missing credential an OperationError.
	// Otherwise the request goes out unauthenticated.
	CredentialsRequired bool
	AuthScheme          charityspurse.AuthScheme

	// Verbose logs every record decision at info level.
	Verbose bool

	// ExtraProperties are appended after the request options collection.
	ExtraProperties []engine.Property
}

// DonationHandler fetches the donation list, filters it through the node type's
// predicate and the node's cursor, and emits matching records.
type DonationHandler struct {
	spec   DonationSpec
	client charityspurse.Client
	gate   donation.Gate
}

// NewDonationHandler creates a handler for spec using client for requests.
func NewDonationHandler(spec DonationSpec, client charityspurse.Client, gate donation.Gate) *DonationHandler {
	return &DonationHandler{spec: spec, client: client, gate: gate}
}

func (h *DonationHandler) NodeType() string { return h.spec.Type }

// Spec returns the handler's configuration.
func (h *DonationHandler) Spec() DonationSpec { return h.spec }

func (h *DonationHandler) Description() engine.NodeDescription {
	desc := engine.NodeDescription{
		DisplayName: h.spec.DisplayName,
		Name:        h.spec.Type,
		Version:     h.spec.Version,
		Description: h.spec.Summary,
		Defaults:    map[string]string{"name": h.spec.DefaultName},
		Outputs:     []string{engine.ConnectionMain},
		Polling:     h.spec.Polling,
		Credentials: []engine.CredentialRequirement{
			{Name: credentials.CharitysPurseName, Required: h.spec.CredentialsRequired},
		},
		Properties: append([]engine.Property{requestOptionsProperty()}, h.spec.ExtraProperties...),
	}
	if h.spec.Polling {
		desc.Group = []string{engine.GroupTrigger}
		desc.Inputs = []string{}
	} else {
		desc.Group = []string{engine.GroupTransform}
		desc.Inputs = []string{engine.ConnectionMain}
	}
	return desc
}

// Execute runs one fetch/filter/cursor cycle.
func (h *DonationHandler) Execute(ec *engine.ExecutionContext, node *engine.Node) ([]engine.Item, error) {
	log := ec.Log().With("node", node.ID, "nodeType", h.spec.Type)
	now := ec.Time()
	key := node.StateKey()

	cur, err := ec.State.Load(ec.Ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", key, err)
	}

	if h.spec.Polling && !h.gate.Due(cur, now) {
		log.Debug("skipping poll, not due yet", "nextPollAt", cur.NextPollAt)
		return nil, nil
	}

	req, err := h.buildRequest(ec, node, cur.Since(), log)
	if err != nil {
		return nil, err
	}

	body, err := h.client.ListDonations(ec.Ctx, req)
	if err != nil {
		return h.fetchFailed(ec, key, cur, now, err, log)
	}

	records := donation.Normalize(body)
	matched, next := donation.Filter(records, cur, h.match(log), now)
	if h.spec.Polling {
		next = h.gate.Succeeded(next, now)
	}

	if err := ec.State.Save(ec.Ctx, key, next); err != nil {
		return nil, fmt.Errorf("save state for %s: %w", key, err)
	}

	log.Info("donations fetched",
		"since", req.Since,
		"received", len(records),
		"matched", len(matched),
		"processed", len(next.ProcessedIDs),
	)

	if h.spec.Polling && len(matched) == 0 {
		return nil, nil
	}
	return toItems(matched), nil
}

// Preview fetches from since and filters against the stored processed ids
// without persisting anything.
func (h *DonationHandler) Preview(ec *engine.ExecutionContext, node *engine.Node, since time.Time) ([]engine.Item, error) {
	log := ec.Log().With("node", node.ID, "nodeType", h.spec.Type, "preview", true)

	cur, err := ec.State.Load(ec.Ctx, node.StateKey())
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", node.StateKey(), err)
	}

	req, err := h.buildRequest(ec, node, since, log)
	if err != nil {
		return nil, err
	}

	body, err := h.client.ListDonations(ec.Ctx, req)
	if err != nil {
		return nil, engine.NewOperationError(h.spec.Type, "API request failed", err)
	}

	matched, _ := donation.Filter(donation.Normalize(body), cur, h.spec.Match, ec.Time())
	return toItems(matched), nil
}

// fetchFailed applies the node's error policy to a failed request.
// Processed ids and lastPollTime are never touched here.
func (h *DonationHandler) fetchFailed(ec *engine.ExecutionContext, key state.Key, cur donation.Cursor, now time.Time, fetchErr error, log *slog.Logger) ([]engine.Item, error) {
	if !h.spec.Polling {
		return nil, engine.NewOperationError(h.spec.Type, "Error fetching donations", fetchErr)
	}

	deferred := h.gate.Failed(cur, now)
	if err := ec.State.Save(ec.Ctx, key, deferred); err != nil {
		return nil, fmt.Errorf("save state for %s: %w", key, err)
	}
	log.Warn("donation fetch failed, deferring next poll",
		"error", fetchErr,
		"nextPollAt", deferred.NextPollAt,
	)
	return nil, nil
}

func (h *DonationHandler) buildRequest(ec *engine.ExecutionContext, node *engine.Node, since time.Time, log *slog.Logger) (charityspurse.ListRequest, error) {
	req := charityspurse.ListRequest{
		BaseURL:                credentials.DefaultBaseURL,
		Since:                  donation.FormatSince(since),
		AuthScheme:             h.spec.AuthScheme,
		Query:                  parseStringMap(node.StringParameter(ParamQuery), "qs", log),
		Headers:                parseStringMap(node.StringParameter(ParamHeaders), "headers", log),
		AllowUnauthorizedCerts: node.BoolParameter(ParamAllowUnauthorizedCerts),
	}

	key, err := h.resolveCredentials(ec, log)
	if err != nil {
		return req, err
	}
	if key != nil {
		req.APIKey = key.Key
		req.BaseURL = key.BaseURLOrDefault()
	}
	return req, nil
}

func (h *DonationHandler) resolveCredentials(ec *engine.ExecutionContext, log *slog.Logger) (*credentials.APIKey, error) {
	err := credentials.ErrNotFound
	var key *credentials.APIKey
	if ec.Credentials != nil {
		key, err = ec.Credentials.Resolve(ec.Ctx, credentials.CharitysPurseName)
	}
	if err == nil {
		return key, nil
	}

	if h.spec.CredentialsRequired {
		return nil, engine.NewOperationError(h.spec.Type, "Failed to load credentials", err)
	}
	if !errors.Is(err, credentials.ErrNotFound) {
		log.Warn("credential lookup failed, continuing unauthenticated", "error", err)
	}
	return nil, nil
}

func (h *DonationHandler) match(log *slog.Logger) donation.Predicate {
	if !h.spec.Verbose {
		return h.spec.Match
	}
	return func(r donation.Record) bool {
		ok := h.spec.Match(r)
		log.Info("checking donation",
			"id", r.ID(),
			"status", r.Status(),
			"created_at", r.CreatedAt(),
			"updated_at", r.UpdatedAt(),
			"statusMatch", ok,
		)
		return ok
	}
}

func toItems(records []donation.Record) []engine.Item {
	items := make([]engine.Item, 0, len(records))
	for _, r := range records {
		items = append(items, engine.Item{JSON: r.Item()})
	}
	return items
}

// parseStringMap decodes an optional JSON object string. Malformed input is
// ignored so a typo in node options never stops a trigger.
func parseStringMap(raw, name string, log *slog.Logger) map[string]string {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		log.Debug("ignoring malformed request option", "option", name, "error", err)
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func requestOptionsProperty() engine.Property {
	return engine.Property{
		DisplayName: "Request Options",
		Name:        "requestOptions",
		Type:        "collection",
		Default:     map[string]any{},
		Placeholder: "Add Option",
		Description: "Additional options to configure the request",
		Options: []engine.Property{
			{
				DisplayName: "Allow Unauthorized Certs",
				Name:        "allowUnauthorizedCerts",
				Type:        "boolean",
				Default:     false,
				Description: "Whether to connect even if SSL certificate validation is not possible",
			},
			{
				DisplayName: "Query Parameters",
				Name:        "qs",
				Type:        "string",
				Default:     "",
				Description: "Query parameters to include in the request (JSON object string)",
			},
			{
				DisplayName: "Headers",
				Name:        "headers",
				Type:        "string",
				Default:     "",
				Description: "Headers to include in the request (JSON object string)",
			},
		},
	}
}
