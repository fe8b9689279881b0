package config

import (
	"context"
	"fmt"
	"os"

	"roombooking-service/internal/calendar"
)

// Gateway builds the configured calendar provider. graph is non-nil only
// for the Graph provider, which also serves as a mail sender.
func (c Config) Gateway(ctx context.Context) (gw calendar.Gateway, graph *calendar.GraphGateway, err error) {
	switch c.Provider {
	case ProviderGraph:
		client := calendar.GraphAppClient(ctx, c.GraphTenantID, c.GraphClientID, c.GraphClientSecret)
		g, err := calendar.NewGraphGateway(client, calendar.GraphConfig{Endpoint: c.GraphEndpoint, TimeZone: c.TimeZone})
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case ProviderGoogle:
		creds, err := os.ReadFile(c.GoogleCredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read google credentials: %w", err)
		}
		client, err := calendar.GoogleServiceAccountClient(ctx, creds, c.GoogleSubject)
		if err != nil {
			return nil, nil, err
		}
		rooms, err := LoadRooms(c.GoogleRoomsFile)
		if err != nil {
			return nil, nil, err
		}
		g, err := calendar.NewGoogleGateway(ctx, client, calendar.GoogleConfig{Rooms: rooms, TimeZone: c.TimeZone})
		if err != nil {
			return nil, nil, err
		}
		return g, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown calendar provider %q", c.Provider)
}
