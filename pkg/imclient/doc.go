// Package imclient provides the entry point for constructing an
// Infrastructure Manager API client that implements the im.Client interface.
//
// It normalizes the endpoint, loads the auth credentials and wires the HTTP
// transport. Credentials come either from an auth file (Config.AuthFile) or
// from inline auth data (Config.AuthData); the file wins when both are set.
//
// Quick start
//
//	ctx := context.Background()
//
//	client, err := imclient.New(ctx, &im.Config{
//	  Endpoint: "im.example.com:8800",
//	  AuthFile: "auth.dat",
//	})
//	if err != nil { log.Fatal(err) }
//
//	resp, err := client.CreateInfrastructure(ctx, radl, im.ContentTypeRADL)
//	if err != nil { log.Fatal(err) }
//	if !resp.Successful() { log.Fatal(resp.Err()) }
//
//	infID := resp.Result().ID
//
// Endpoints without a scheme get https://. Missing or unreadable auth files
// fail with im.ErrAuthFileNotFound before any request is made.
package imclient
