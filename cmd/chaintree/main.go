package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/Luismorlan/chaintree_in_go/commands"
	"github.com/Luismorlan/chaintree_in_go/config"
	"github.com/Luismorlan/chaintree_in_go/node"
	"github.com/Luismorlan/chaintree_in_go/utils"
	"github.com/Luismorlan/chaintree_in_go/wallet"
)

type options struct {
	KeyPath    string `long:"key_path" default:"/tmp/chaintree_key.pem" description:"RSA file path for the node's private key"`
	NewKey     bool   `long:"new_key" description:"Generate a fresh key at key_path instead of loading it"`
	ConfigPath string `long:"config_path" default:"cmd/chaintree/config.yaml" description:"Path to the node config"`
}

// The REPL supports:
//   show <d>  - render the tree from d levels above the best tip.
//   balance   - print the value the local key owns at the best tip.
//   exit      - quit.
func runREPL(n *node.Node, w *wallet.Wallet) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		c, err := commands.CreateCommand(text)
		if err != nil {
			log.Println(err)
			continue
		}
		switch c.Op {
		case commands.SHOW:
			// Already validated as a number.
			d, _ := strconv.Atoi(c.Args[0])
			n.Show(d)
		case commands.BALANCE:
			l := n.BestLedgerSnapshot()
			w.Refresh(&l)
			fmt.Printf("balance at depth %d: %v\n", n.BestDepth(), w.Balance())
		case commands.EXIT:
			return
		}
	}
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	cfg, err := config.ParseAppConfig(opts.ConfigPath)
	if err != nil {
		log.Println(err, "- falling back to defaults")
		cfg = config.DefaultAppConfig()
	}

	w, err := wallet.NewWallet(opts.KeyPath, opts.NewKey, cfg.KEY_BITS)
	if err != nil {
		log.Fatalln("failed to load wallet key:", err)
	}
	log.Println("node public key:", w.GetPublicKey())

	genesis, err := utils.CreateGenesisBlock(cfg.COINBASE_REWARD, w.PublicKeyBytes())
	if err != nil {
		log.Fatalln("failed to build genesis block:", err)
	}

	n := node.NewNode(cfg, genesis)
	log.Println("chain started at genesis", genesis.Hash)

	runREPL(n, w)
}
