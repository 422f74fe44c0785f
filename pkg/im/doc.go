/*
Package im defines the public API of the Infrastructure Manager (IM) client:
the Client interface, its configuration, the ServiceResponse envelope and the
error taxonomy.

# Creating a Client

Clients are built by the imclient package:

	client, err := imclient.New(ctx, &im.Config{
		Endpoint: "https://im.example.com:8800",
		AuthFile: "auth.dat",
	})
	if err != nil {
		log.Fatal(err)
	}

# Responses

Every call returns a *ServiceResponse and an error. The error reports
problems on the client side (invalid arguments, network failures, bodies that
cannot be decoded). A request the service rejected is not an error:

	resp, err := client.GetInfrastructureState(ctx, infID)
	if err != nil {
		return err
	}
	if !resp.Successful() {
		return resp.Err()
	}
	fmt.Println(resp.Result().State)

# Waiting for VMs

Infrastructure operations are asynchronous. WaitForVMState polls a VM's state
until it is one of PollOptions.States:

	state, err := client.WaitForVMState(ctx, infID, "0", nil)
	if errors.Is(err, im.ErrPollingTimeout) {
		// still not running after MaxAttempts
	}

# Errors

KindOf maps any returned error to an ErrorKind; the sentinels
(ErrInvalidArgument, ErrTransport, ErrDecode, ...) work with errors.Is.
*/
package im
