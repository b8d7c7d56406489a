package handlers

import (
	"donation-nodes/pkg/clients/charityspurse"
	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
)

// Catalog returns the spec of every donation node this module ships.
func Catalog() []DonationSpec {
	return []DonationSpec{
		{
			Type:                TypeDonationInitiated,
			DisplayName:         "Charity's Purse Donation Initiated",
			Summary:             "Emits donations that are processing, or confirmed and since edited",
			DefaultName:         "Donation Initiated",
			Version:             9,
			Match:               donation.Initiated,
			CredentialsRequired: true,
			AuthScheme:          charityspurse.AuthHeader,
		},
		{
			Type:                TypeDonationConfirmed,
			DisplayName:         "Charity's Purse Donation Confirmed",
			Summary:             "Emits confirmed donations",
			DefaultName:         "Donation Confirmed",
			Version:             9,
			Match:               donation.Confirmed,
			CredentialsRequired: true,
			AuthScheme:          charityspurse.AuthHeader,
		},
		{
			Type:        TypeDonationAbandoned,
			DisplayName: "Charity's Purse Donation Abandoned",
			Summary:     "Polls for abandoned donations",
			DefaultName: "Donation Abandoned",
			Version:     15,
			Polling:     true,
			Match:       donation.Abandoned,
			AuthScheme:  charityspurse.AuthBearer,
		},
		{
			Type:                TypeDonationTesting,
			DisplayName:         "Charity's Purse Donation Testing",
			Summary:             "Polling variant of the initiated trigger that logs every decision",
			DefaultName:         "Donation Testing",
			Version:             1,
			Polling:             true,
			Match:               donation.Initiated,
			CredentialsRequired: true,
			AuthScheme:          charityspurse.AuthHeader,
			Verbose:             true,
			ExtraProperties: []engine.Property{
				{
					DisplayName: "Polls every minute and logs each donation it checks",
					Name:        "notice",
					Type:        "notice",
					Default:     "",
				},
			},
		},
		{
			Type:                TypeDonationTestingAlt,
			DisplayName:         "Charity's Purse Donation Testing (Alt)",
			Summary:             "Initiated trigger meant to run behind a schedule",
			DefaultName:         "Donation Testing Alt",
			Version:             1,
			Match:               donation.Initiated,
			CredentialsRequired: true,
			AuthScheme:          charityspurse.AuthHeader,
			ExtraProperties: []engine.Property{
				{
					DisplayName: "Connect a Schedule Trigger to control how often this node runs",
					Name:        "notice",
					Type:        "notice",
					Default:     "",
				},
			},
		},
	}
}

// NewRegistry registers the full node catalog against client.
func NewRegistry(client charityspurse.Client, gate donation.Gate) *engine.Registry {
	registry := engine.NewRegistry()
	for _, spec := range Catalog() {
		registry.Register(NewDonationHandler(spec, client, gate))
	}
	registry.Register(NewHeartbeatHandler())
	return registry
}
