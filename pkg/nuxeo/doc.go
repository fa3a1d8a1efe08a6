// Package nuxeo is a client SDK for the Nuxeo content-management REST API.
//
// A Client binds typed local calls to the server's fixed endpoints: document
// CRUD, users and groups, vocabularies (directories), workflow tasks,
// server-side automation operations, and batched file uploads. Every call is
// a single synchronous HTTP round trip; cancellation and deadlines come from
// the caller's context.
//
// Basic usage:
//
//	client, err := nuxeo.NewClient(&nuxeo.Config{
//		BaseURL: "https://nuxeo.example.com/nuxeo",
//	}, nuxeo.BasicAuth{Username: "Administrator", Password: "secret"})
//	if err != nil {
//		return err
//	}
//
//	doc, err := client.Documents.GetByPath(ctx, "/default-domain/workspaces")
//
// Resource models returned by the client keep a reference to the service
// that produced them, so further calls can be dispatched from the model
// itself (doc.Save, doc.Delete, task.Complete, ...). The reference is a
// convenience alias, not an ownership relation.
//
// The client performs no retries, caching, or token lifecycle management;
// those concerns belong to the server and to the http.RoundTripper the
// caller installs.
package nuxeo
