// acdexctl is a thin operator CLI for a running acdexd node. Each
// subcommand maps onto one REST endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

const defaultNode = "http://localhost:8080"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: acdexctl [-node URL] <command> [flags]

Commands:
  round                                  show the active round
  orders                                 list open orders
  order        -id N                     show one order
  account      -address 0x..             show balances and referrer
  treasury                               show the treasury balance
  register     -address 0x.. -referrer 0x..
  buy          -buyer 0x.. -amount N -payment WEI
  add-order    -seller 0x.. -amount N -price WEI
  cancel-order -seller 0x.. -id N
  redeem       -buyer 0x.. -id N -amount N -payment WEI
  start-trade                            open the next trade round
  start-sale                             open the next sale round
  withdraw     -to 0x.. -amount WEI      withdraw from the treasury
`)
	os.Exit(2)
}

func main() {
	node := flag.String("node", defaultNode, "node base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "round":
		err = get(*node, "/api/v1/round")
	case "orders":
		err = get(*node, "/api/v1/orders")
	case "order":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Uint64("id", 0, "order id")
		fs.Parse(args)
		err = get(*node, fmt.Sprintf("/api/v1/orders/%d", *id))
	case "account":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("address", "", "account address")
		fs.Parse(args)
		err = get(*node, "/api/v1/accounts/"+*addr)
	case "treasury":
		err = get(*node, "/api/v1/treasury")
	case "register":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("address", "", "account address")
		ref := fs.String("referrer", "", "referrer address")
		fs.Parse(args)
		err = post(*node, "/api/v1/referrals", map[string]interface{}{
			"address": *addr, "referrer": *ref,
		})
	case "buy":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		buyer := fs.String("buyer", "", "buyer address")
		amount := fs.Uint64("amount", 0, "tokens to buy")
		payment := fs.Uint64("payment", 0, "payment in wei")
		fs.Parse(args)
		err = post(*node, "/api/v1/purchases", map[string]interface{}{
			"buyer": *buyer, "amount": *amount, "payment": *payment,
		})
	case "add-order":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		seller := fs.String("seller", "", "seller address")
		amount := fs.Uint64("amount", 0, "tokens to list")
		price := fs.Uint64("price", 0, "wei per token")
		fs.Parse(args)
		err = post(*node, "/api/v1/orders", map[string]interface{}{
			"seller": *seller, "amount": *amount, "unitPrice": *price,
		})
	case "cancel-order":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		seller := fs.String("seller", "", "seller address")
		id := fs.Uint64("id", 0, "order id")
		fs.Parse(args)
		err = post(*node, "/api/v1/orders/cancel", map[string]interface{}{
			"seller": *seller, "orderId": *id,
		})
	case "redeem":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		buyer := fs.String("buyer", "", "buyer address")
		id := fs.Uint64("id", 0, "order id")
		amount := fs.Uint64("amount", 0, "tokens to redeem")
		payment := fs.Uint64("payment", 0, "payment in wei")
		fs.Parse(args)
		err = post(*node, "/api/v1/redemptions", map[string]interface{}{
			"buyer": *buyer, "orderId": *id, "amount": *amount, "payment": *payment,
		})
	case "start-trade":
		err = post(*node, "/api/v1/round/trade", nil)
	case "start-sale":
		err = post(*node, "/api/v1/round/sale", nil)
	case "withdraw":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		to := fs.String("to", "", "recipient address")
		amount := fs.Uint64("amount", 0, "wei to withdraw")
		fs.Parse(args)
		err = post(*node, "/api/v1/treasury/withdraw", map[string]interface{}{
			"to": *to, "amount": *amount,
		})
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func get(node, path string) error {
	resp, err := http.Get(node + path)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func post(node, path string, body interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := http.Post(node+path, "application/json", &buf)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

// printResponse pretty-prints the JSON body and fails on non-2xx.
func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(data))
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("node returned %s", resp.Status)
	}
	return nil
}
