// Package client is a Go client for the mini-redis HTTP gateway.
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Set(ctx, "greeting", "hello"); err != nil {
//		return err
//	}
//	value, ok, err := c.Get(ctx, "greeting")
//
// Subscribe waits for a single message; Stream keeps receiving until ctx ends:
//
//	err = c.Stream(ctx, []string{"news"}, func(msg service.SubscribeResponse) error {
//		fmt.Println(msg.Channel, msg.Message)
//		return nil
//	})
//
// Gateway errors are returned as *APIError and match the package sentinels:
//
//	if errors.Is(err, client.ErrFiltered) {
//		// the server's filter rejected the operation
//	}
package client
