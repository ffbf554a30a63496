/*
Package ledger implements the value ledger: one integer balance per address
and transfers between them.

Every transfer consults the identity gate. Each endpoint must be eligible,
unless it is a contract account of the scope the transfer is executed in.
The optional transfer limit applies only to endpoints that are not trusted
within that scope.

MultiTransfer moves value from one source to many destinations as a single
unit: all legs are applied to a cache wrapped store which is written only
if every leg succeeded.
*/
package ledger
