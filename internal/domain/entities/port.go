package entities

import "context"

// Store port (interface for the normalized data store).
//
// UpsertBatch must apply the whole batch in one transaction keyed by
// (external_id, client_id) per entity, (external_id, source) for Client,
// so a re-sync of identical vendor data updates in place and a mid-batch
// failure leaves nothing applied for that sync.
type Store interface {
	UpsertBatch(ctx context.Context, tenant string, clientID ClientID, batch *NormalizedBatch) (int, error)

	// ClientData returns a consistent read of every row owned by the client.
	ClientData(ctx context.Context, tenant string, clientID ClientID) (*ClientData, error)

	GetClient(ctx context.Context, tenant string, id ClientID) (*Client, error)
	FindClientByExternalID(ctx context.Context, tenant string, externalID string, source Source) (*Client, error)
}
