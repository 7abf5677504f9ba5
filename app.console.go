package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Console is the thin line-oriented surface driving the stores. It is
// a stand-in for a real presentation layer: all state handling lives
// in the stores, the console only parses commands and prints results.
type Console struct {
	logger  *zap.Logger
	session SessionStoreProvider
	catalog CatalogStoreProvider
	orders  OrdersStoreProvider
	in      io.ReadCloser
	out     io.Writer
}

// NewConsole provides a console bound to standard input and output.
func NewConsole(logger *zap.Logger, session SessionStoreProvider, catalog CatalogStoreProvider, orders OrdersStoreProvider) *Console {
	return &Console{
		logger:  logger,
		session: session,
		catalog: catalog,
		orders:  orders,
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// Close releases the input stream to unblock a pending read.
func (c *Console) Close() {
	_ = c.in.Close()
}

// Run reads commands until quit, end of input or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "storefront console ready. type `help` for commands.")
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		c.dispatch(ctx, fields[0], fields[1:])
	}
	return scanner.Err()
}

func (c *Console) dispatch(ctx context.Context, cmd string, args []string) {
	var err error
	switch cmd {
	case "help":
		c.printHelp()
	case "whoami":
		if user, ok := c.session.User(); ok {
			fmt.Fprintf(c.out, "signed in as %s (#%d)\n", user.Username, user.ID)
		} else {
			fmt.Fprintf(c.out, "session is %s\n", c.session.Status())
		}
	case "register":
		err = c.register(ctx, args)
	case "login":
		err = c.login(ctx, args)
	case "logout":
		c.session.Logout(ctx)
		fmt.Fprintln(c.out, "signed out")
	case "books":
		err = c.catalog.LoadBooks(ctx)
		c.printBooks()
	case "book":
		err = c.withID(args, func(id int64) error {
			book, berr := c.catalog.GetBook(ctx, id)
			if berr == nil {
				fmt.Fprintf(c.out, "#%d %s by %s\n%s\nprice: %s stock: %d isbn: %s\n",
					book.ID, book.Title, book.Author, book.Description, book.Price, book.Stock, book.ISBN)
			}
			return berr
		})
	case "search":
		c.catalog.SearchBooks(strings.Join(args, " "))
		fmt.Fprintln(c.out, "search scheduled")
	case "author":
		author := strings.Join(args, " ")
		err = c.catalog.ApplyFilters(ctx, FilterOverrides{Author: &author})
		c.printBooks()
	case "stock":
		onlyInStock := len(args) > 0 && args[0] == "on"
		err = c.catalog.ApplyFilters(ctx, FilterOverrides{InStockOnly: &onlyInStock})
		c.printBooks()
	case "sort":
		if len(args) != 1 {
			err = NewFailure(FailureValidation, "usage: sort <title|price|-price|-created_at>", nil)
			break
		}
		err = c.catalog.SortBooks(ctx, SortKey(args[0]))
		c.printBooks()
	case "cart":
		c.printCart()
	case "add":
		err = c.addToCart(ctx, args)
	case "update":
		err = c.updateCartItem(ctx, args)
	case "remove":
		err = c.withID(args, func(id int64) error { return c.catalog.RemoveCartItem(ctx, id) })
	case "clear":
		err = c.catalog.ClearCart(ctx)
	case "checkout":
		var order Order
		if order, err = c.orders.Checkout(ctx); err == nil {
			fmt.Fprintf(c.out, "order #%d placed (%s)\n", order.ID, order.Status)
		}
	case "orders":
		err = c.orders.Load(ctx)
		c.printOrders()
	case "cancel":
		err = c.withID(args, func(id int64) error {
			order, cerr := c.orders.Cancel(ctx, id)
			if cerr == nil {
				fmt.Fprintf(c.out, "order #%d is now %s\n", order.ID, order.Status)
			}
			return cerr
		})
	default:
		fmt.Fprintf(c.out, "unknown command %q. type `help`.\n", cmd)
	}
	if err != nil {
		fmt.Fprintln(c.out, FailureMessage(err))
	}
}

func (c *Console) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return NewFailure(FailureValidation, "usage: register <username> <email> <password>", nil)
	}
	user, err := c.session.Register(ctx, RegisterRequest{Username: args[0], Email: args[1], Password: args[2]})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "welcome %s\n", user.Username)
	return nil
}

func (c *Console) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return NewFailure(FailureValidation, "usage: login <username> <password>", nil)
	}
	user, err := c.session.Login(ctx, LoginRequest{Username: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "welcome back %s\n", user.Username)
	return nil
}

func (c *Console) addToCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return NewFailure(FailureValidation, "usage: add <book-id> [quantity]", nil)
	}
	bookID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return NewFailure(FailureValidation, "book id must be a number", nil)
	}
	quantity := 1
	if len(args) > 1 {
		if quantity, err = strconv.Atoi(args[1]); err != nil {
			return NewFailure(FailureValidation, "quantity must be a number", nil)
		}
	}
	return c.catalog.AddToCart(ctx, bookID, quantity)
}

func (c *Console) updateCartItem(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return NewFailure(FailureValidation, "usage: update <item-id> <quantity>", nil)
	}
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return NewFailure(FailureValidation, "item id must be a number", nil)
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return NewFailure(FailureValidation, "quantity must be a number", nil)
	}
	return c.catalog.UpdateCartItem(ctx, itemID, quantity)
}

func (c *Console) withID(args []string, fn func(int64) error) error {
	if len(args) != 1 {
		return NewFailure(FailureValidation, "an identifier is required", nil)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return NewFailure(FailureValidation, "identifier must be a number", nil)
	}
	return fn(id)
}

func (c *Console) printBooks() {
	books := c.catalog.Books()
	if len(books) == 0 {
		fmt.Fprintln(c.out, "no books found")
		return
	}
	for _, book := range books {
		fmt.Fprintf(c.out, "#%-5d %-40s %-20s %8s stock:%d\n", book.ID, book.Title, book.Author, book.Price, book.Stock)
	}
}

func (c *Console) printCart() {
	cart := c.catalog.Cart()
	if cart == nil {
		fmt.Fprintln(c.out, "no cart. sign in first.")
		return
	}
	if len(cart.Items) == 0 {
		fmt.Fprintln(c.out, "cart is empty")
		return
	}
	for _, item := range cart.Items {
		fmt.Fprintf(c.out, "item #%-5d %-40s x%-3d %8s\n", item.ID, item.Book.Title, item.Quantity, item.TotalPrice)
	}
	fmt.Fprintf(c.out, "total: %s (%d items)\n", cart.TotalPrice, cart.TotalItems)
}

func (c *Console) printOrders() {
	orders := c.orders.Orders()
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "no orders yet")
		return
	}
	for _, order := range orders {
		fmt.Fprintf(c.out, "order #%-5d %-10s %8s placed:%s\n", order.ID, order.Status, order.TotalPrice, order.CreatedAt)
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, strings.TrimSpace(`
whoami                                 show session state
register <username> <email> <password> create an account
login <username> <password>            open a session
logout                                 close the session
books                                  reload and list books
book <book-id>                         show one book detail
search <text>                          debounced free-text search
author <text>                          filter by author
stock <on|off>                         filter in-stock only
sort <title|price|-price|-created_at>  order the listing
cart                                   show the cart
add <book-id> [quantity]               add a book to the cart
update <item-id> <quantity>            change an item quantity
remove <item-id>                       remove an item
clear                                  empty the cart
checkout                               place an order from the cart
orders                                 reload and list orders
cancel <order-id>                      cancel an order
quit                                   leave`))
}
